package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Fixed timeouts applied to every exchange
const (
	ConnectTimeout = 30 * time.Second
	ReadTimeout    = 30 * time.Second
	// TotalTimeout bounds a whole exchange including the body read
	TotalTimeout = ConnectTimeout + ReadTimeout
)

// DefaultUserAgent is sent when an exchange carries no User-Agent header.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Recorder receives per-exchange measurements.
type Recorder interface {
	ObserveUpstreamRequest(method string, status int, duration time.Duration)
	IncUpstreamRateLimited()
	IncUpstreamFailures(method string)
}

// Doer executes HTTP exchanges. The extraction backends depend on this
// rather than on Downloader directly.
type Doer interface {
	Execute(ctx context.Context, ex Exchange) (*Result, error)
}

// Downloader is the transport adapter used by the extraction layer.
type Downloader struct {
	client    *http.Client
	userAgent string
	logger    *utils.Logger
	recorder  Recorder
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *utils.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Downloader) {
		d.recorder = r
	}
}

// NewHTTPClient returns an http.Client carrying the fixed timeout policy.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: TotalTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   ConnectTimeout,
			ResponseHeaderTimeout: ReadTimeout,
			ExpectContinueTimeout: time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// NewDownloader creates a Downloader with the fixed timeout policy.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client:    NewHTTPClient(),
		userAgent: DefaultUserAgent,
		logger:    utils.GetLogger().Named("transport"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute performs exactly one round trip for ex.
//
// A 429 response yields *models.RateLimitedError. Network level failures
// yield *models.TransportError. Every other status is returned as a Result,
// and a body that cannot be fully read degrades to whatever was read.
func (d *Downloader) Execute(ctx context.Context, ex Exchange) (*Result, error) {
	method := ex.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if ex.Body != nil {
		body = bytes.NewReader(ex.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, ex.URL, body)
	if err != nil {
		return nil, &models.TransportError{Method: method, URL: ex.URL, Err: err}
	}

	ex.Header.apply(req.Header)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		if d.recorder != nil {
			d.recorder.IncUpstreamFailures(method)
		}
		d.logger.Debug("Exchange failed", "method", method, "url", ex.URL, "error", err)
		return nil, &models.TransportError{Method: method, URL: ex.URL, Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		d.observe(method, resp.StatusCode, start)
		if d.recorder != nil {
			d.recorder.IncUpstreamRateLimited()
		}
		d.logger.Warn("Origin rate limited the request", "url", ex.URL)
		return nil, &models.RateLimitedError{URL: ex.URL}
	}

	// ReadAll returns what it managed to read alongside the error
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Debug("Response body truncated", "url", ex.URL, "read", len(data), "error", err)
	}
	d.observe(method, resp.StatusCode, start)

	finalURL := ex.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     HeaderFromHTTP(resp.Header),
		Body:       string(data),
		FinalURL:   finalURL,
	}, nil
}

func (d *Downloader) observe(method string, status int, start time.Time) {
	if d.recorder != nil {
		d.recorder.ObserveUpstreamRequest(method, status, time.Since(start))
	}
}

// unwrapURLError strips the *url.Error wrapper, TransportError already
// carries the method and URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

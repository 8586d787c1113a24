package transport

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// doerTripper lets clients built around http.Client, such as the Google API
// libraries, send their requests through a Doer.
type doerTripper struct {
	doer  Doer
	extra *Header
}

// NewClient returns an http.Client whose every request is executed by doer.
// extra is added to each request, which keeps credentials out of URLs.
// Errors from doer, a 429 included, come back from Do wrapped in a
// *url.Error.
func NewClient(doer Doer, extra *Header) *http.Client {
	return &http.Client{Transport: &doerTripper{doer: doer, extra: extra}}
}

func (t *doerTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = data
	}

	header := HeaderFromHTTP(req.Header)
	if t.extra != nil {
		for _, name := range t.extra.Names() {
			for _, v := range t.extra.Values(name) {
				header.Add(name, v)
			}
		}
	}

	res, err := t.doer.Execute(req.Context(), Exchange{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	respHeader := make(http.Header)
	res.Header.apply(respHeader)
	respHeader.Set("Content-Length", strconv.Itoa(len(res.Body)))

	return &http.Response{
		Status:        strconv.Itoa(res.StatusCode) + " " + http.StatusText(res.StatusCode),
		StatusCode:    res.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        respHeader,
		Body:          io.NopCloser(strings.NewReader(res.Body)),
		ContentLength: int64(len(res.Body)),
		Request:       req,
	}, nil
}

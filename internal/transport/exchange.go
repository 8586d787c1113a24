package transport

// Exchange describes a single outgoing HTTP request.
type Exchange struct {
	// Method defaults to GET when empty
	Method string
	URL    string
	Header *Header
	// Body is written before the response is read, nil means no body
	Body []byte
}

// Get is shorthand for a GET exchange with optional headers.
func Get(url string, header *Header) Exchange {
	return Exchange{Method: "GET", URL: url, Header: header}
}

// Result is the response to an Exchange. Any status other than 429 ends up
// here, including 4xx and 5xx.
type Result struct {
	StatusCode int
	Header     *Header
	// Body is the response body decoded as text, "" when unreadable
	Body string
	// FinalURL is the URL that produced the response, after redirects
	FinalURL string
}

// OK reports whether the status is 2xx.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Package transport executes raw HTTP exchanges on behalf of the extraction layer.
package transport

import (
	"net/http"
	"slices"
)

// Header is an ordered multimap of header names to values. Names keep the
// order in which they were first added and every value is retained.
type Header struct {
	names  []string
	values map[string][]string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: make(map[string][]string)}
}

// HeaderFromHTTP folds a net/http header into an ordered Header. Go does not
// preserve wire order, so names are sorted to keep output deterministic.
func HeaderFromHTTP(src http.Header) *Header {
	h := NewHeader()
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, v := range src[name] {
			h.Add(name, v)
		}
	}
	return h
}

// Add appends value to name. Empty names are dropped.
func (h *Header) Add(name, value string) {
	if name == "" {
		return
	}
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = append(h.values[name], value)
}

// Set replaces all values of name with value.
func (h *Header) Set(name, value string) {
	if name == "" {
		return
	}
	if h.values == nil {
		h.values = make(map[string][]string)
	}
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = []string{value}
}

// Get returns the first value of name or "".
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	if vs := h.values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns a copy of all values of name in insertion order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.values[name])
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[name]
	return ok
}

// Names returns the header names in first-insertion order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.names)
}

// Len returns the number of distinct names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// apply copies the header onto an outgoing request.
func (h *Header) apply(dst http.Header) {
	if h == nil {
		return
	}
	for _, name := range h.names {
		for _, v := range h.values[name] {
			dst.Add(name, v)
		}
	}
}

package transport

import (
	"net/http"
	"slices"
	"testing"
)

func TestHeaderOrderAndValues(t *testing.T) {
	h := NewHeader()
	h.Add("X-B", "1")
	h.Add("X-A", "2")
	h.Add("X-B", "3")
	h.Add("", "dropped")

	if got := h.Names(); !slices.Equal(got, []string{"X-B", "X-A"}) {
		t.Errorf("Names = %v", got)
	}
	if got := h.Values("X-B"); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("Values(X-B) = %v", got)
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d", h.Len())
	}

	h.Set("X-B", "9")
	if got := h.Values("X-B"); !slices.Equal(got, []string{"9"}) {
		t.Errorf("after Set = %v", got)
	}
	if got := h.Names(); !slices.Equal(got, []string{"X-B", "X-A"}) {
		t.Errorf("Set changed order: %v", got)
	}
}

func TestHeaderValuesIsCopy(t *testing.T) {
	h := NewHeader()
	h.Add("K", "v")
	vs := h.Values("K")
	vs[0] = "mutated"
	if h.Get("K") != "v" {
		t.Error("Values exposed internal storage")
	}
}

func TestNilHeader(t *testing.T) {
	var h *Header
	if h.Get("x") != "" || h.Len() != 0 || h.Has("x") || h.Names() != nil {
		t.Error("nil header should behave as empty")
	}
	h.apply(http.Header{})
}

func TestHeaderFromHTTP(t *testing.T) {
	src := http.Header{}
	src.Add("Vary", "Accept")
	src.Add("Vary", "Origin")
	src.Add("Content-Type", "text/plain")
	src[""] = []string{"ignored"}

	h := HeaderFromHTTP(src)
	if got := h.Names(); !slices.Equal(got, []string{"Content-Type", "Vary"}) {
		t.Errorf("Names = %v", got)
	}
	if got := h.Values("Vary"); !slices.Equal(got, []string{"Accept", "Origin"}) {
		t.Errorf("Vary = %v", got)
	}
}

// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/utils"
)

// maxHTTPBody bounds a single POST body
const maxHTTPBody = 1 << 20

// HTTPHandler serves JSON-RPC requests and batches posted over HTTP.
type HTTPHandler struct {
	router *Router
	logger *utils.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(router *Router, logger *utils.Logger) *HTTPHandler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &HTTPHandler{
		router: router,
		logger: logger.Named("rpc_http"),
	}
}

// ServeHTTP answers with a response, an array of responses for a batch, or
// 204 when every request was a notification.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxHTTPBody))
	if err != nil {
		h.logger.Warn("Failed to read request body", "error", err.Error())
		utils.RespondWithJSON(w, http.StatusOK, NewErrorResponse(nil, NewInvalidRequestError("unreadable body")))
		return
	}

	if !isBatch(payload) {
		var request Request
		if err := json.Unmarshal(payload, &request); err != nil {
			utils.RespondWithJSON(w, http.StatusOK, NewErrorResponse(nil, NewParseError(err)))
			return
		}

		responses, ok := h.run(r, []*Request{&request})
		if !ok {
			return
		}
		if responses[0] == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, responses[0])
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		utils.RespondWithJSON(w, http.StatusOK, NewErrorResponse(nil, NewParseError(err)))
		return
	}
	if len(raw) == 0 {
		utils.RespondWithJSON(w, http.StatusOK, NewErrorResponse(nil, NewInvalidRequestError("empty batch")))
		return
	}

	// Malformed batch members are answered in place without being run
	requests := make([]*Request, len(raw))
	invalid := make(map[int]*Response)
	for i, item := range raw {
		var request Request
		if err := json.Unmarshal(item, &request); err != nil {
			invalid[i] = NewErrorResponse(nil, NewInvalidRequestError(err.Error()))
			request = Request{JSONRPC: Version, Method: "", ID: nil}
		}
		requests[i] = &request
	}

	responses, ok := h.run(r, requests)
	if !ok {
		return
	}

	out := make([]*Response, 0, len(responses))
	for i, response := range responses {
		if bad, found := invalid[i]; found {
			response = bad
		}
		if response != nil {
			out = append(out, response)
		}
	}

	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// run routes every request and waits for all replies. It reports false when
// the client went away first.
func (h *HTTPHandler) run(r *http.Request, requests []*Request) ([]*Response, bool) {
	responses := make([]*Response, len(requests))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(len(requests))
	for i, request := range requests {
		i := i
		h.router.Route(request, bridge.Inline, func(response *Response) {
			mu.Lock()
			responses[i] = response
			mu.Unlock()
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		return responses, true
	case <-r.Context().Done():
		h.logger.Debug("Client went away before the reply", "requests", len(requests))
		return nil, false
	}
}

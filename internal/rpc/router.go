// Package rpc exposes the gateway operations over JSON-RPC 2.0, both on
// WebSocket connections and on plain HTTP.
package rpc

import (
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Invoker starts an operation and posts its outcome to origin.
type Invoker interface {
	Invoke(op string, args map[string]any, origin bridge.Executor, cb bridge.Callback)
}

// ReplyFunc receives the response to one request, nil for notifications.
type ReplyFunc func(*Response)

// Router maps JSON-RPC requests onto bridge operations. Method names are the
// operation names.
type Router struct {
	invoker Invoker
	logger  *utils.Logger
}

// NewRouter creates a new router.
func NewRouter(invoker Invoker, logger *utils.Logger) *Router {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Router{
		invoker: invoker,
		logger:  logger.Named("router"),
	}
}

// Route validates request and invokes its method. reply is called exactly
// once, on origin.
func (r *Router) Route(request *Request, origin bridge.Executor, reply ReplyFunc) {
	if origin == nil {
		origin = bridge.Inline
	}

	if rpcErr := validate(request); rpcErr != nil {
		r.logger.Warn("Invalid request", "method", request.Method, "error", rpcErr.Message)
		origin.Post(func() { reply(NewErrorResponse(request.ID, rpcErr)) })
		return
	}

	args, rpcErr := decodeParams(request.Params)
	if rpcErr != nil {
		r.logger.Warn("Invalid params", "method", request.Method, "error", rpcErr.Message)
		origin.Post(func() { reply(r.respond(request, NewErrorResponse(request.ID, rpcErr))) })
		return
	}

	r.invoker.Invoke(request.Method, args, origin, func(outcome bridge.Outcome) {
		reply(r.respond(request, responseFor(request, outcome)))
	})
}

// respond drops responses to notifications.
func (r *Router) respond(request *Request, response *Response) *Response {
	if request.IsNotification() {
		return nil
	}
	return response
}

// responseFor converts a bridge outcome into a response.
func responseFor(request *Request, outcome bridge.Outcome) *Response {
	switch {
	case outcome.NotImplemented:
		return NewErrorResponse(request.ID, NewMethodNotFoundError(request.Method))
	case outcome.Err != nil:
		return NewErrorResponse(request.ID, NewOperationError(outcome.Err))
	default:
		return NewResponse(request.ID, outcome.Value)
	}
}

func validate(request *Request) *Error {
	if request.JSONRPC != Version {
		return NewInvalidRequestError("jsonrpc must be \"2.0\"")
	}
	if request.Method == "" {
		return NewInvalidRequestError("missing method")
	}
	return nil
}

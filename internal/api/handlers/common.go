// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Caller runs one named operation and waits for its outcome.
type Caller interface {
	Call(ctx context.Context, op string, args map[string]any) (bridge.Outcome, error)
}

// respondOutcome writes value on success and the classified error otherwise.
// It reports whether the outcome carried a value.
func respondOutcome(w http.ResponseWriter, logger *utils.Logger, op string, outcome bridge.Outcome, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		// Client went away, nobody is left to answer
		logger.Debug("Request canceled", "op", op)
		return false
	case err != nil:
		logger.Warn("Operation wait failed", "op", op, "error", err.Error())
		utils.RespondWithAppError(w, utils.NewAppError(err, "Operation timed out", http.StatusGatewayTimeout).AddDetail("op", op))
		return false
	case outcome.NotImplemented:
		utils.RespondWithError(w, http.StatusNotImplemented, "Operation not implemented")
		return false
	case outcome.Err != nil:
		utils.RespondWithAppError(w, operationAppError(outcome.Err))
		return false
	default:
		return true
	}
}

// operationAppError carries the operation code and reason next to the
// message of a failed operation.
func operationAppError(err *bridge.OperationError) *utils.AppError {
	var appErr *utils.AppError
	switch status := statusFor(err); status {
	case http.StatusNotFound:
		appErr = utils.NotFoundError(err.Error(), err)
	case http.StatusTooManyRequests:
		appErr = utils.RateLimitError(err.Error(), err)
	case http.StatusBadGateway:
		appErr = utils.BadGatewayError(err.Error(), err)
	default:
		appErr = utils.NewAppError(err, err.Error(), status)
	}

	return appErr.WithDetails(map[string]any{
		"code":   err.Code,
		"reason": err.Reason,
	})
}

// statusFor maps an operation error onto an HTTP status. Unclassified
// upstream failures are the origin's fault, not ours.
func statusFor(err *bridge.OperationError) int {
	switch err.Reason {
	case bridge.ReasonUnavailable:
		return http.StatusServiceUnavailable
	case bridge.ReasonInternal:
		return http.StatusInternalServerError
	}

	if status := utils.StatusCode(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusBadGateway
}

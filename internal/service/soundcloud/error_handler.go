package soundcloud

import (
	"context"
	"errors"

	"github.com/oshokin/scdl-grabber/internal/logger"
)

// ErrorHandler provides centralized error handling and recording.
type ErrorHandler struct {
	service *ServiceImpl
}

// NewErrorHandler creates an error handler for the service.
func NewErrorHandler(service *ServiceImpl) *ErrorHandler {
	return &ErrorHandler{service: service}
}

// HandleError logs and records err. It returns true when there was an error to handle.
func (h *ErrorHandler) HandleError(
	ctx context.Context,
	err error,
	errorCtx *ErrorContext,
	incrementFailed bool,
) bool {
	if err == nil {
		return false
	}

	if !errors.Is(err, context.Canceled) {
		logger.Errorf(ctx, "%s failed: %v", errorCtx.Phase, err)
	}

	h.service.recordError(errorCtx, err)

	if incrementFailed {
		h.service.incrementTrackFailed()
	}

	return true
}

// HandleSkip handles a track skip with logging and recording.
func (h *ErrorHandler) HandleSkip(
	ctx context.Context,
	reason SkipReason,
	errorCtx *ErrorContext,
) {
	logger.Infof(ctx, "Skipping %s: %s", errorCtx.ItemTitle, reason)

	h.service.incrementTrackSkipped(reason)
}

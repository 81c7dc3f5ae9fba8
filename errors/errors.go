package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrFetchFailure       = fmt.Errorf("ticker fetch failed")
	ErrEmptyMessage       = fmt.Errorf("message is empty")
	ErrInvalidMessage     = fmt.Errorf("message is invalid")
	ErrAppendFailed       = fmt.Errorf("message append failed")
	ErrSubscriptionClosed = fmt.Errorf("subscription closed")
	ErrEmptyCatalog       = fmt.Errorf("coin catalog is empty")
)

// UnmappedMarketError is returned for a market id missing from the coin catalog.
type UnmappedMarketError struct {
	Market string
}

func (e *UnmappedMarketError) Error() string {
	return fmt.Sprintf("no coin metadata for market %q", e.Market)
}

// Is lets errors.Is(err, ErrFetchFailure) match an unmapped market.
func (e *UnmappedMarketError) Is(target error) bool {
	return target == ErrFetchFailure
}

// StatusCode maps domain errors to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrEmptyMessage), stderrors.Is(err, ErrInvalidMessage):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrSubscriptionClosed):
		return http.StatusGone
	case stderrors.Is(err, ErrFetchFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

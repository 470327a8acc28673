package bridge

import "github.com/pkg/errors"

// Every failure aborts the whole request: nothing is committed.
var (
	ErrOperationPaused            = errors.New("operation paused")
	ErrOperationNotPaused         = errors.New("related operations must be paused first")
	ErrUnauthorizedCaller         = errors.New("unauthorized caller")
	ErrUnknownToken               = errors.New("unknown token")
	ErrUnsupportedRoute           = errors.New("unsupported route")
	ErrInvalidDestinationEncoding = errors.New("invalid destination encoding")
	ErrAmountBelowFloor           = errors.New("amount below floor")
	ErrFeeExceedsAmount           = errors.New("fee exceeds amount")
	ErrDuplicateEvent             = errors.New("duplicate event")
	ErrMalformedInstruction       = errors.New("malformed instruction")
	ErrAlreadyInitialized         = errors.New("bridge state already initialized")
	ErrTokenKindConflict          = errors.New("token already registered with another kind")
	ErrInvalidArgument            = errors.New("invalid argument")
)

var rejections = []error{
	ErrOperationPaused, ErrOperationNotPaused, ErrUnauthorizedCaller, ErrUnknownToken,
	ErrUnsupportedRoute, ErrInvalidDestinationEncoding, ErrAmountBelowFloor, ErrFeeExceedsAmount,
	ErrDuplicateEvent, ErrMalformedInstruction, ErrAlreadyInitialized, ErrTokenKindConflict, ErrInvalidArgument,
}

// IsRejection reports whether err is a refusal of the request itself, as
// opposed to a storage or emitter failure worth retrying.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when paying for a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoMethod is returned when submitting before a payment method is chosen.
	ErrNoMethod = errors.New("payment method not selected")
	// ErrInvalidMethod is returned for an unknown payment method.
	ErrInvalidMethod = errors.New("invalid payment method")
	// ErrInsufficientTender is returned when cash tendered is below the amount due.
	ErrInsufficientTender = errors.New("tendered amount is less than total")
	// ErrInvalidTender is returned for a negative tender.
	ErrInvalidTender = errors.New("tendered amount must not be negative")
	// ErrTenderNotAccepted is returned when tendering for a non-cash payment.
	ErrTenderNotAccepted = errors.New("tender only applies to cash payments")
	// ErrSubmitInProgress is returned for any change attempted while an order
	// is being submitted.
	ErrSubmitInProgress = errors.New("submission in progress")
)

// Stage names the submission step that failed.
type Stage string

const (
	StageSession Stage = "session"
	StageOrder   Stage = "order"
)

// SubmitError wraps a failed submission. The cart and payment state are left
// as they were before Submit was called.
type SubmitError struct {
	Stage Stage
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("checkout failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

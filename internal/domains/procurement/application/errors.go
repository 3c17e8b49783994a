package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid replenishment input")
	// ErrDuplicatePending marks a line skipped because an order is already pending.
	ErrDuplicatePending = errors.New("pending order already exists")
	// ErrNoOfferAvailable marks a line skipped because no supplier offers the product.
	ErrNoOfferAvailable = errors.New("no supplier offer available")
)

// LineError is a storage failure scoped to one product of a batch.
type LineError struct {
	ProductID int64
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// BatchError collects the failed lines of a batch whose other lines were
// still attempted.
type BatchError struct {
	BranchID int64
	Lines    []*LineError
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		msgs = append(msgs, l.Error())
	}
	return fmt.Sprintf("branch %d: %d line(s) failed: %s", e.BranchID, len(e.Lines), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Lines))
	for _, l := range e.Lines {
		errs = append(errs, l)
	}
	return errs
}

// ProductIDs lists the products that failed.
func (e *BatchError) ProductIDs() []int64 {
	ids := make([]int64, 0, len(e.Lines))
	for _, l := range e.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// BatchErrorFromResult rebuilds the batch error of a result that crossed a
// process boundary, where only the outcome details survive. It returns nil
// when no line failed.
func BatchErrorFromResult(result *ports.PlanResult) error {
	if result == nil || len(result.FailedProductIDs) == 0 {
		return nil
	}
	details := make(map[int64]string, len(result.Outcomes))
	for _, o := range result.Outcomes {
		if o.State == ports.LineFailed {
			details[o.ProductID] = o.Detail
		}
	}
	batchErr := &BatchError{BranchID: result.BranchID, Lines: make([]*LineError, 0, len(result.FailedProductIDs))}
	for _, id := range result.FailedProductIDs {
		detail := details[id]
		if detail == "" {
			detail = "order not stored"
		}
		batchErr.Lines = append(batchErr.Lines, &LineError{ProductID: id, Err: errors.New(detail)})
	}
	return batchErr
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidProductID) ||
		errors.Is(err, domain.ErrInvalidBranchID) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrInvalidKind) ||
		errors.Is(err, domain.ErrUnknownWeekday) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

package services

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// QuotationStatus is the lifecycle state of a saved quotation.
type QuotationStatus string

const (
	QuotationPending  QuotationStatus = "pending"
	QuotationApproved QuotationStatus = "approved"
	QuotationRejected QuotationStatus = "rejected"
	QuotationInvoiced QuotationStatus = "invoiced"
	QuotationExpired  QuotationStatus = "expired"
)

// QuotationStatuses lists every status, pending first.
var QuotationStatuses = []QuotationStatus{
	QuotationPending,
	QuotationApproved,
	QuotationRejected,
	QuotationInvoiced,
	QuotationExpired,
}

// Quotation status events.
const (
	EventApprove = "approve"
	EventReject  = "reject"
	EventInvoice = "invoice"
	EventExpire  = "expire"
)

// Terminal reports whether no further transition is possible from s.
func (s QuotationStatus) Terminal() bool {
	return s != QuotationPending
}

func (s QuotationStatus) valid() bool {
	for _, v := range QuotationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// QuotationFSM wraps a quotation status with its state machine. Every
// non-pending state is a sink.
type QuotationFSM struct {
	fsm *fsm.FSM
}

// NewQuotationFSM creates a state machine positioned at status.
func NewQuotationFSM(status QuotationStatus) *QuotationFSM {
	pending := []string{string(QuotationPending)}
	return &QuotationFSM{
		fsm: fsm.NewFSM(
			string(status),
			fsm.Events{
				{Name: EventApprove, Src: pending, Dst: string(QuotationApproved)},
				{Name: EventReject, Src: pending, Dst: string(QuotationRejected)},
				{Name: EventInvoice, Src: pending, Dst: string(QuotationInvoiced)},
				{Name: EventExpire, Src: pending, Dst: string(QuotationExpired)},
			},
			fsm.Callbacks{},
		),
	}
}

// Fire applies event and returns the resulting status. Unknown events and
// events not allowed from the current status fail with ErrInvalidTransition.
func (q *QuotationFSM) Fire(ctx context.Context, event string) (QuotationStatus, error) {
	if !q.fsm.Can(event) {
		return q.Current(), fmt.Errorf("%w: cannot %s a %s quotation", ErrInvalidTransition, event, q.fsm.Current())
	}
	if err := q.fsm.Event(ctx, event); err != nil {
		return q.Current(), fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return q.Current(), nil
}

// Current returns the current status.
func (q *QuotationFSM) Current() QuotationStatus {
	return QuotationStatus(q.fsm.Current())
}

// AvailableEvents lists the events that can be fired from the current status.
func (q *QuotationFSM) AvailableEvents() []string {
	return q.fsm.AvailableTransitions()
}

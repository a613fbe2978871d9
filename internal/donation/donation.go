package donation

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a single donation attempt.
type State string

const (
	StateIdle             State = "idle"
	StateStarted          State = "started"
	StateAwaitingCallback State = "awaiting_callback"
	StateCompleted        State = "completed"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// MinAmount is the smallest accepted donation, in cents (KES 1.00).
const MinAmount int64 = 100

// Donation is a confirmed contribution to a project. Rows only exist for
// payments that actually committed.
type Donation struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	DonorID     *uuid.UUID // nil for anonymous donations
	Amount      int64      // Amount in cents, always > 0
	PhoneNumber string
	CreatedAt   time.Time
}

// PendingDonation bridges the start/confirm/complete steps of one donation
// attempt. It lives in the caller's signed session, never in the ledger, and
// must not outlive the attempt.
type PendingDonation struct {
	ProjectID         uuid.UUID
	Amount            int64
	PhoneNumber       string
	CheckoutRequestID string
	State             State
	CreatedAt         time.Time
}

// AttemptStatus tracks whether a payment attempt has been resolved.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSettled AttemptStatus = "settled"
	AttemptFailed  AttemptStatus = "failed"
)

// PaymentAttempt is the durable record written at push time, keyed by the
// gateway's correlation id. The asynchronous callback carries no session
// context, so this row is the only way to reconnect a result to the project,
// donor and amount that originated it.
type PaymentAttempt struct {
	ID                uuid.UUID
	CheckoutRequestID string
	ProjectID         uuid.UUID
	DonorID           *uuid.UUID
	Amount            int64 // Amount in cents
	PhoneNumber       string
	Status            AttemptStatus
	ReceiptNumber     *string
	FailureReason     *string
	CreatedAt         time.Time
	SettledAt         *time.Time
}

package donation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecodonate/ecodonate/internal/mpesa"
	"github.com/ecodonate/ecodonate/internal/project"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=donation
type Repository interface {
	CreateAttempt(ctx context.Context, attempt *PaymentAttempt) error
	GetAttemptByCheckoutID(ctx context.Context, checkoutRequestID string) (*PaymentAttempt, error)
	MarkAttemptFailed(ctx context.Context, checkoutRequestID, reason string) error

	// Commit applies the ledger mutation for one donation as a single
	// atomic unit: project balance increment, donation insert, and, when a
	// correlation id is present, the settle of the payment attempt. A
	// failure leaves nothing applied.
	Commit(ctx context.Context, params CommitParams) (*Donation, error)

	ListDonations(ctx context.Context, filter ListFilter) ([]*Donation, error)
}

// Gateway is the outbound push-payment boundary. Satisfied by *mpesa.Client.
type Gateway interface {
	GetAccessToken(ctx context.Context) (string, error)
	InitiateSTKPush(ctx context.Context, token string, req mpesa.PushRequest) (*mpesa.PushAck, error)
}

// ProjectDirectory resolves projects for validation. Satisfied by
// *project.Service.
type ProjectDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

type CommitParams struct {
	ProjectID         uuid.UUID
	DonorID           *uuid.UUID
	Amount            int64
	PhoneNumber       string
	CheckoutRequestID string
	ReceiptNumber     string
}

type ListFilter struct {
	ProjectID *uuid.UUID
	DonorID   *uuid.UUID
}

// Service drives a donation attempt through
// started -> awaiting_callback -> completed, with cancellation and failure
// branches. It holds no state of its own: the attempt lives in the caller's
// session plus, once a push is sent, in the durable payment_attempts table.
type Service struct {
	repo     Repository
	projects ProjectDirectory
	gateway  Gateway
	logger   zerolog.Logger
}

func NewService(repo Repository, projects ProjectDirectory, gateway Gateway, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		gateway:  gateway,
		logger:   logger.With().Str("component", "donation").Logger(),
	}
}

type StartParams struct {
	ProjectID   uuid.UUID
	Amount      int64 // cents
	PhoneNumber string
}

var phonePattern = regexp.MustCompile(`^254(7|1)\d{8}$`)

// NormalizePhone converts the common local spellings (07..., +2547..., 7...)
// to the canonical 254XXXXXXXXX form the gateway expects.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	phone = strings.ReplaceAll(phone, " ", "")

	switch {
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		return "254" + phone[1:]
	case (strings.HasPrefix(phone, "7") || strings.HasPrefix(phone, "1")) && len(phone) == 9:
		return "254" + phone
	}

	return phone
}

func validateStart(params StartParams) (string, FieldErrors) {
	fe := FieldErrors{}

	if params.Amount < MinAmount {
		fe["amount"] = "donation amount must be at least KES 1.00"
	} else if params.Amount%100 != 0 {
		// The gateway only accepts whole shillings.
		fe["amount"] = "donation amount must be a whole number of shillings"
	}

	phone := NormalizePhone(params.PhoneNumber)
	if !phonePattern.MatchString(phone) {
		fe["phone_number"] = "enter a valid M-Pesa number, e.g. 2547XXXXXXXX"
	}

	if len(fe) > 0 {
		return "", fe
	}

	return phone, nil
}

// Start validates the submitted amount and phone and opens a new pending
// donation for the project. Validation failures return FieldErrors and leave
// no state behind.
func (s *Service) Start(ctx context.Context, params StartParams) (*PendingDonation, error) {
	phone, fe := validateStart(params)
	if fe != nil {
		return nil, fe
	}

	if _, err := s.projects.Get(ctx, params.ProjectID); err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	return &PendingDonation{
		ProjectID:   params.ProjectID,
		Amount:      params.Amount,
		PhoneNumber: phone,
		State:       StateStarted,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Push asks the gateway to prompt the payer's phone. On acceptance it records
// a durable payment attempt keyed by the gateway's correlation id so the
// stateless callback can later find its way back, and moves the pending
// donation to awaiting_callback. On any gateway failure the pending donation
// stays in started; retries are the user's call, never automatic.
func (s *Service) Push(ctx context.Context, pending *PendingDonation, donorID *uuid.UUID) error {
	if pending == nil {
		return ErrNoPending
	}

	if pending.State != StateStarted {
		return fmt.Errorf("%w: push requires a started donation, have %s", ErrInvalidState, pending.State)
	}

	token, err := s.gateway.GetAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("authorizing with gateway: %w", err)
	}

	ack, err := s.gateway.InitiateSTKPush(ctx, token, mpesa.PushRequest{
		Amount:           pending.Amount / 100,
		PhoneNumber:      pending.PhoneNumber,
		AccountReference: fmt.Sprintf("Project_%s", pending.ProjectID),
		Description:      "Ecodonate donation",
	})
	if err != nil {
		return err
	}

	attempt := &PaymentAttempt{
		CheckoutRequestID: ack.CheckoutRequestID,
		ProjectID:         pending.ProjectID,
		DonorID:           donorID,
		Amount:            pending.Amount,
		PhoneNumber:       pending.PhoneNumber,
		Status:            AttemptPending,
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		// The push is already on its way to the payer's phone; without the
		// attempt row the callback cannot commit, so fail loudly.
		s.logger.Error().Err(err).
			Str("checkout_request_id", ack.CheckoutRequestID).
			Msg("push accepted but attempt could not be recorded")

		return fmt.Errorf("%w: %v", ErrAttemptNotRecorded, err)
	}

	pending.CheckoutRequestID = ack.CheckoutRequestID
	pending.State = StateAwaitingCallback

	s.logger.Info().
		Str("checkout_request_id", ack.CheckoutRequestID).
		Str("project_id", pending.ProjectID.String()).
		Int64("amount", pending.Amount).
		Msg("push sent")

	return nil
}

// Confirm gates the irreversible commit step on pending data being present.
func (s *Service) Confirm(pending *PendingDonation) error {
	if pending == nil {
		return ErrNoPending
	}

	return nil
}

// Complete commits the donation to the ledger as one atomic unit. If the
// callback path settled the attempt first, ErrAlreadySettled comes back and
// the caller treats the donation as done without a second credit.
func (s *Service) Complete(ctx context.Context, pending *PendingDonation, donorID *uuid.UUID) (*Donation, error) {
	if pending == nil {
		return nil, ErrNoPending
	}

	if pending.State != StateStarted && pending.State != StateAwaitingCallback {
		return nil, fmt.Errorf("%w: complete requires an active donation, have %s", ErrInvalidState, pending.State)
	}

	d, err := s.repo.Commit(ctx, CommitParams{
		ProjectID:         pending.ProjectID,
		DonorID:           donorID,
		Amount:            pending.Amount,
		PhoneNumber:       pending.PhoneNumber,
		CheckoutRequestID: pending.CheckoutRequestID,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			pending.State = StateCompleted
			return nil, err
		}

		return nil, fmt.Errorf("committing donation: %w", err)
	}

	pending.State = StateCompleted

	s.logger.Info().
		Str("donation_id", d.ID.String()).
		Str("project_id", d.ProjectID.String()).
		Int64("amount", d.Amount).
		Msg("donation committed")

	return d, nil
}

// Cancel abandons the attempt without touching the ledger. When a push was
// already sent, the durable attempt is failed so a late approval on the
// payer's phone cannot commit a donation the user walked away from.
func (s *Service) Cancel(ctx context.Context, pending *PendingDonation) {
	if pending == nil {
		return
	}

	if pending.CheckoutRequestID != "" {
		if err := s.repo.MarkAttemptFailed(ctx, pending.CheckoutRequestID, "cancelled by user"); err != nil {
			s.logger.Warn().Err(err).
				Str("checkout_request_id", pending.CheckoutRequestID).
				Msg("failed to mark cancelled attempt")
		}
	}

	pending.State = StateCancelled
}

// HandleCallback reconciles an asynchronous gateway result against the
// durable attempt written at push time. Repeated delivery of the same
// correlation id settles nothing twice: the settle guard inside Commit turns
// the second delivery into ErrAlreadySettled.
func (s *Service) HandleCallback(ctx context.Context, cb mpesa.StkCallback) error {
	if cb.CheckoutRequestID == "" {
		return fmt.Errorf("callback carries no correlation id")
	}

	log := s.logger.With().Str("checkout_request_id", cb.CheckoutRequestID).Logger()

	if cb.ResultCode != mpesa.ResultCodeSuccess {
		log.Info().Int("result_code", cb.ResultCode).Str("result_desc", cb.ResultDesc).
			Msg("push declined by payer or gateway")

		if err := s.repo.MarkAttemptFailed(ctx, cb.CheckoutRequestID, cb.ResultDesc); err != nil {
			return fmt.Errorf("marking attempt failed: %w", err)
		}

		return nil
	}

	attempt, err := s.repo.GetAttemptByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("resolving payment attempt: %w", err)
	}

	// Trust the gateway's settled amount over the requested one, but the
	// callback endpoint is unauthenticated: a non-positive amount never
	// reaches the ledger.
	amount := attempt.Amount
	if paid, ok := cb.Amount(); ok {
		if paid > 0 {
			amount = paid * 100
		} else {
			log.Warn().Int64("gateway_amount", paid).Int64("attempt_amount", attempt.Amount).
				Msg("ignoring non-positive callback amount")
		}
	}

	receipt, _ := cb.ReceiptNumber()

	d, err := s.repo.Commit(ctx, CommitParams{
		ProjectID:         attempt.ProjectID,
		DonorID:           attempt.DonorID,
		Amount:            amount,
		PhoneNumber:       attempt.PhoneNumber,
		CheckoutRequestID: attempt.CheckoutRequestID,
		ReceiptNumber:     receipt,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			log.Info().Msg("callback redelivered for settled attempt, ignoring")
			return nil
		}

		return fmt.Errorf("committing donation from callback: %w", err)
	}

	log.Info().
		Str("donation_id", d.ID.String()).
		Str("receipt", receipt).
		Int64("amount", d.Amount).
		Msg("donation committed from callback")

	return nil
}

// List exposes the read-only reporting view over confirmed donations.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Donation, error) {
	return s.repo.ListDonations(ctx, filter)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecodonate/ecodonate/internal/donation"
	"github.com/ecodonate/ecodonate/internal/project"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectAttemptColumns = `
	a.id, a.checkout_request_id, a.project_id, a.donor_id, a.amount, a.phone_number,
	a.status, a.receipt_number, a.failure_reason, a.created_at, a.settled_at
`

func scanAttempt(s scanner) (*donation.PaymentAttempt, error) {
	var a donation.PaymentAttempt

	var status string

	var receipt, reason sql.NullString

	var settledAt sql.NullTime

	if err := s.Scan(
		&a.ID, &a.CheckoutRequestID, &a.ProjectID, &a.DonorID, &a.Amount, &a.PhoneNumber,
		&status, &receipt, &reason, &a.CreatedAt, &settledAt,
	); err != nil {
		return nil, err
	}

	a.Status = donation.AttemptStatus(status)

	if receipt.Valid {
		a.ReceiptNumber = &receipt.String
	}

	if reason.Valid {
		a.FailureReason = &reason.String
	}

	if settledAt.Valid {
		a.SettledAt = &settledAt.Time
	}

	return &a, nil
}

func (s *Store) CreateAttempt(ctx context.Context, attempt *donation.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (checkout_request_id, project_id, donor_id, amount, phone_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		attempt.CheckoutRequestID,
		attempt.ProjectID,
		attempt.DonorID,
		attempt.Amount,
		attempt.PhoneNumber,
		attempt.Status,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payment attempt: %w", err)
	}

	return nil
}

func (s *Store) GetAttemptByCheckoutID(ctx context.Context, checkoutRequestID string) (*donation.PaymentAttempt, error) {
	query := `SELECT ` + selectAttemptColumns + `
		FROM payment_attempts a
		WHERE a.checkout_request_id = $1`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, checkoutRequestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, donation.ErrAttemptNotFound
		}

		return nil, fmt.Errorf("getting payment attempt: %w", err)
	}

	return attempt, nil
}

func (s *Store) MarkAttemptFailed(ctx context.Context, checkoutRequestID, reason string) error {
	query := `
		UPDATE payment_attempts
		SET status = $1, failure_reason = $2
		WHERE checkout_request_id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, donation.AttemptFailed, reason, checkoutRequestID, donation.AttemptPending)
	if err != nil {
		return fmt.Errorf("marking attempt failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking attempt failed: %w", err)
	}

	if rows == 0 {
		return donation.ErrAttemptNotFound
	}

	return nil
}

// Commit applies one donation to the ledger inside a single database
// transaction: settle the payment attempt (when a correlation id exists),
// increment the project balance, insert the donation row. The relative
// UPDATE on projects takes a row lock, so two donations committing against
// the same project serialize instead of losing an update. The settle guard
// (status = 'pending') makes a redelivered callback a no-op rather than a
// double credit.
func (s *Store) Commit(ctx context.Context, params donation.CommitParams) (*donation.Donation, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning commit tx: %w", err)
	}
	defer dbTx.Rollback()

	if params.CheckoutRequestID != "" {
		settle := `
			UPDATE payment_attempts
			SET status = $1, receipt_number = NULLIF($2, ''), settled_at = NOW()
			WHERE checkout_request_id = $3 AND status = $4
		`

		res, err := dbTx.ExecContext(ctx, settle,
			donation.AttemptSettled, params.ReceiptNumber, params.CheckoutRequestID, donation.AttemptPending)
		if err != nil {
			return nil, fmt.Errorf("settling payment attempt: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("settling payment attempt: %w", err)
		}

		if rows == 0 {
			var status string

			err := dbTx.QueryRowContext(ctx,
				`SELECT status FROM payment_attempts WHERE checkout_request_id = $1`,
				params.CheckoutRequestID,
			).Scan(&status)
			if err == sql.ErrNoRows {
				return nil, donation.ErrAttemptNotFound
			}

			if err != nil {
				return nil, fmt.Errorf("checking payment attempt: %w", err)
			}

			return nil, donation.ErrAlreadySettled
		}
	}

	credit := `
		UPDATE projects
		SET current_amount = current_amount + $1
		WHERE id = $2
	`

	res, err := dbTx.ExecContext(ctx, credit, params.Amount, params.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("crediting project: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("crediting project: %w", err)
	}

	if rows == 0 {
		return nil, project.ErrNotFound
	}

	d := &donation.Donation{
		ProjectID:   params.ProjectID,
		DonorID:     params.DonorID,
		Amount:      params.Amount,
		PhoneNumber: params.PhoneNumber,
	}

	insert := `
		INSERT INTO donations (project_id, donor_id, amount, phone_number, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err = dbTx.QueryRowContext(ctx, insert,
		d.ProjectID, d.DonorID, d.Amount, d.PhoneNumber,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating donation: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing donation tx: %w", err)
	}

	return d, nil
}

const selectDonationColumns = `
	d.id, d.project_id, d.donor_id, d.amount, d.phone_number, d.created_at
`

func scanDonation(s scanner) (*donation.Donation, error) {
	var d donation.Donation

	if err := s.Scan(&d.ID, &d.ProjectID, &d.DonorID, &d.Amount, &d.PhoneNumber, &d.CreatedAt); err != nil {
		return nil, err
	}

	return &d, nil
}

func (s *Store) ListDonations(ctx context.Context, filter donation.ListFilter) ([]*donation.Donation, error) {
	query := `SELECT ` + selectDonationColumns + `
		FROM donations d
		WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.ProjectID != nil {
		query += fmt.Sprintf(" AND d.project_id = $%d", argIdx)

		args = append(args, *filter.ProjectID)
		argIdx++
	}

	if filter.DonorID != nil {
		query += fmt.Sprintf(" AND d.donor_id = $%d", argIdx)

		args = append(args, *filter.DonorID)
		argIdx++
	}

	query += " ORDER BY d.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing donations: %w", err)
	}
	defer rows.Close()

	var donations []*donation.Donation

	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning donation: %w", err)
		}

		donations = append(donations, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating donation rows: %w", err)
	}

	return donations, nil
}

package donation

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecodonate/ecodonate/internal/donation"
)

type pendingResponse struct {
	ProjectID         uuid.UUID `json:"project_id"`
	Amount            int64     `json:"amount"`
	PhoneNumber       string    `json:"phone_number"`
	CheckoutRequestID string    `json:"checkout_request_id,omitempty"`
	State             string    `json:"state"`
}

func toPendingResponse(p *donation.PendingDonation) pendingResponse {
	return pendingResponse{
		ProjectID:         p.ProjectID,
		Amount:            p.Amount,
		PhoneNumber:       p.PhoneNumber,
		CheckoutRequestID: p.CheckoutRequestID,
		State:             string(p.State),
	}
}

type donationResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	DonorID     *uuid.UUID `json:"donor_id,omitempty"`
	Amount      int64      `json:"amount"`
	PhoneNumber string     `json:"phone_number"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toDonationResponseList(donations []*donation.Donation) []donationResponse {
	out := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		out = append(out, toDonationResponse(d))
	}

	return out
}

func toDonationResponse(d *donation.Donation) donationResponse {
	return donationResponse{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		DonorID:     d.DonorID,
		Amount:      d.Amount,
		PhoneNumber: d.PhoneNumber,
		CreatedAt:   d.CreatedAt,
	}
}

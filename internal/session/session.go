// Package session carries the pending donation between the start, confirm
// and complete requests. The state lives client-side in an HMAC-signed JWT
// cookie; the server keeps nothing, so a cookie is the whole session.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ecodonate/ecodonate/internal/donation"
)

const cookieName = "ecodonate_donation"

// ErrNoSession means no valid pending donation accompanies the request:
// the cookie is absent, expired, or its signature does not verify.
var ErrNoSession = errors.New("no donation session")

type claims struct {
	ProjectID         string `json:"project_id"`
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	State             string `json:"state"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue signs the pending donation into the session cookie. The TTL bounds
// one donation attempt; a stale cookie reads as no session at all.
func (m *Manager) Issue(w http.ResponseWriter, pending *donation.PendingDonation) error {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ProjectID:         pending.ProjectID.String(),
		Amount:            pending.Amount,
		PhoneNumber:       pending.PhoneNumber,
		CheckoutRequestID: pending.CheckoutRequestID,
		State:             string(pending.State),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(pending.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read recovers the pending donation from the request cookie.
func (m *Manager) Read(r *http.Request) (*donation.PendingDonation, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var c claims

	token, err := jwt.ParseWithClaims(cookie.Value, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrNoSession
	}

	projectID, err := uuid.Parse(c.ProjectID)
	if err != nil {
		return nil, ErrNoSession
	}

	pending := &donation.PendingDonation{
		ProjectID:         projectID,
		Amount:            c.Amount,
		PhoneNumber:       c.PhoneNumber,
		CheckoutRequestID: c.CheckoutRequestID,
		State:             donation.State(c.State),
	}
	if c.IssuedAt != nil {
		pending.CreatedAt = c.IssuedAt.Time
	}

	return pending, nil
}

// Clear drops the session cookie. Called on completion and cancellation so
// the pending donation cannot outlive its attempt.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

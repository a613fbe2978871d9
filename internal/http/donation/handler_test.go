package donation_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ecodonate/ecodonate/internal/donation"
	donationHandler "github.com/ecodonate/ecodonate/internal/http/donation"
	"github.com/ecodonate/ecodonate/internal/http/middleware"
	"github.com/ecodonate/ecodonate/internal/mpesa"
	"github.com/ecodonate/ecodonate/internal/project"
	"github.com/ecodonate/ecodonate/internal/session"
)

const testSecret = "test-secret"

type fixture struct {
	ts       *httptest.Server
	repo     *donation.MockRepository
	projects *donation.MockProjectDirectory
	gateway  *donation.MockGateway
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		repo:     donation.NewMockRepository(ctrl),
		projects: donation.NewMockProjectDirectory(ctrl),
		gateway:  donation.NewMockGateway(ctrl),
		sessions: session.NewManager(testSecret, 15*time.Minute),
	}

	svc := donation.NewService(f.repo, f.projects, f.gateway, zerolog.Nop())
	h := donationHandler.NewHandler(svc, f.sessions, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/donations", func(r chi.Router) {
		h.Routes(r, middleware.RequireDonor(testSecret))
	})

	f.ts = httptest.NewServer(router)
	t.Cleanup(f.ts.Close)

	return f
}

func bearerToken(t *testing.T, donorID uuid.UUID) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   donorID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

func sessionCookie(t *testing.T, m *session.Manager, pending *donation.PendingDonation) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, pending))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return cookies[0]
}

func TestStart(t *testing.T) {
	projectID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		f.projects.EXPECT().
			Get(gomock.Any(), projectID).
			Return(&project.Project{ID: projectID}, nil)

		resp, err := http.Post(
			f.ts.URL+"/donations/start/"+projectID.String(),
			"application/json",
			strings.NewReader(`{"amount": 50000, "phone_number": "0712345678"}`),
		)
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "started", body["state"])
		assert.Equal(t, "254712345678", body["phone_number"])

		// Exactly one pending donation is stored, in the session cookie.
		cookies := resp.Cookies()
		require.Len(t, cookies, 1)
		assert.NotEmpty(t, cookies[0].Value)
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		f := newFixture(t)

		resp, err := http.Post(
			f.ts.URL+"/donations/start/"+projectID.String(),
			"application/json",
			strings.NewReader(`{"amount": 50, "phone_number": "nope"}`),
		)
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Errors, "amount")
		assert.Contains(t, body.Errors, "phone_number")
	})
}

func TestConfirm_NoSession(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.ts.URL + "/donations/confirm")
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPush_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/donations/push", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPush_AttemptRecordFailure(t *testing.T) {
	projectID := uuid.New()
	donorID := uuid.New()

	f := newFixture(t)

	f.gateway.EXPECT().GetAccessToken(gomock.Any()).Return("token-1", nil)
	f.gateway.EXPECT().
		InitiateSTKPush(gomock.Any(), "token-1", gomock.Any()).
		Return(&mpesa.PushAck{CheckoutRequestID: "ws_CO_123"}, nil)
	f.repo.EXPECT().
		CreateAttempt(gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/donations/push", nil)
	require.NoError(t, err)

	req.Header.Set("Authorization", "Bearer "+bearerToken(t, donorID))
	req.AddCookie(sessionCookie(t, f.sessions, &donation.PendingDonation{
		ProjectID:   projectID,
		Amount:      50000,
		PhoneNumber: "254712345678",
		State:       donation.StateStarted,
		CreatedAt:   time.Now(),
	}))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	// The push went out but our own write failed: a server error with the
	// persistence wording, not a gateway one.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "could not record your donation")
	assert.NotContains(t, string(body), "gateway")
}

func TestList(t *testing.T) {
	donorID := uuid.New()
	projectID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().
			ListDonations(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter donation.ListFilter) ([]*donation.Donation, error) {
				require.NotNil(t, filter.ProjectID)
				assert.Equal(t, projectID, *filter.ProjectID)
				assert.Nil(t, filter.DonorID)

				return []*donation.Donation{
					{ID: uuid.New(), ProjectID: projectID, Amount: 50000, PhoneNumber: "254712345678", CreatedAt: time.Now()},
					{ID: uuid.New(), ProjectID: projectID, Amount: 20000, PhoneNumber: "254798765432", CreatedAt: time.Now()},
				}, nil
			})

		req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/donations/?project_id="+projectID.String(), nil)
		require.NoError(t, err)

		req.Header.Set("Authorization", "Bearer "+bearerToken(t, donorID))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 2)
		assert.Equal(t, float64(50000), body[0]["amount"])
	})

	t.Run("RequiresAuth", func(t *testing.T) {
		f := newFixture(t)

		resp, err := http.Get(f.ts.URL + "/donations/")
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("InvalidProjectFilter", func(t *testing.T) {
		f := newFixture(t)

		req, err := http.NewRequest(http.MethodGet, f.ts.URL+"/donations/?project_id=nope", nil)
		require.NoError(t, err)

		req.Header.Set("Authorization", "Bearer "+bearerToken(t, donorID))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestComplete(t *testing.T) {
	projectID := uuid.New()
	donorID := uuid.New()

	pending := func() *donation.PendingDonation {
		return &donation.PendingDonation{
			ProjectID:         projectID,
			Amount:            50000,
			PhoneNumber:       "254712345678",
			CheckoutRequestID: "ws_CO_123",
			State:             donation.StateAwaitingCallback,
			CreatedAt:         time.Now(),
		}
	}

	doComplete := func(t *testing.T, f *fixture) *http.Response {
		t.Helper()

		req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/donations/complete", nil)
		require.NoError(t, err)

		req.Header.Set("Authorization", "Bearer "+bearerToken(t, donorID))
		req.AddCookie(sessionCookie(t, f.sessions, pending()))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		return resp
	}

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().
			Commit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params donation.CommitParams) (*donation.Donation, error) {
				assert.Equal(t, projectID, params.ProjectID)
				require.NotNil(t, params.DonorID)
				assert.Equal(t, donorID, *params.DonorID)

				return &donation.Donation{
					ID:          uuid.New(),
					ProjectID:   params.ProjectID,
					DonorID:     params.DonorID,
					Amount:      params.Amount,
					PhoneNumber: params.PhoneNumber,
					CreatedAt:   time.Now(),
				}, nil
			})

		resp := doComplete(t, f)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		// The session cookie is cleared on success.
		cookies := resp.Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
	})

	t.Run("CallbackWonTheRace", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().
			Commit(gomock.Any(), gomock.Any()).
			Return(nil, donation.ErrAlreadySettled)

		resp := doComplete(t, f)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("PersistenceFailureKeepsSession", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().
			Commit(gomock.Any(), gomock.Any()).
			Return(nil, context.DeadlineExceeded)

		resp := doComplete(t, f)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		// No Set-Cookie: the pending donation is not silently discarded.
		assert.Empty(t, resp.Cookies())
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)

	pending := &donation.PendingDonation{
		ProjectID: uuid.New(),
		Amount:    500,
		State:     donation.StateStarted,
		CreatedAt: time.Now(),
	}

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/donations/cancel", nil)
	require.NoError(t, err)

	req.AddCookie(sessionCookie(t, f.sessions, pending))

	// No ledger expectations: cancel must not mutate anything.
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
}

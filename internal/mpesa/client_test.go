package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	c := NewClient(Config{
		BaseURL:        baseURL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/v1/payments/callback",
	})
	c.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	}

	return c
}

func TestClient_GetAccessToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/oauth/v1/generate", r.URL.Path)
			assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key", user)
			assert.Equal(t, "secret", pass)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "abc123", "expires_in": "3599"}`))
		}))
		defer ts.Close()

		token, err := testClient(ts.URL).GetAccessToken(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		_, err := testClient(ts.URL).GetAccessToken(context.Background())

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	})

	t.Run("NetworkError", func(t *testing.T) {
		_, err := testClient("http://127.0.0.1:1").GetAccessToken(context.Background())

		var authErr *AuthError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("EmptyToken", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		_, err := testClient(ts.URL).GetAccessToken(context.Background())

		var authErr *AuthError
		assert.ErrorAs(t, err, &authErr)
	})
}

func TestClient_InitiateSTKPush(t *testing.T) {
	req := PushRequest{
		Amount:           500,
		PhoneNumber:      "254712345678",
		AccountReference: "Project_42",
		Description:      "Ecodonate donation",
	}

	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

			assert.Equal(t, "174379", payload["BusinessShortCode"])
			assert.Equal(t, "20240601123045", payload["Timestamp"])
			assert.Equal(t, "CustomerPayBillOnline", payload["TransactionType"])
			assert.Equal(t, float64(500), payload["Amount"])
			assert.Equal(t, "254712345678", payload["PartyA"])
			assert.Equal(t, "174379", payload["PartyB"])
			assert.Equal(t, "Project_42", payload["AccountReference"])

			wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20240601123045"))
			assert.Equal(t, wantPassword, payload["Password"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResponseCode": "0",
				"ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage": "Success. Request accepted for processing"
			}`))
		}))
		defer ts.Close()

		ack, err := testClient(ts.URL).InitiateSTKPush(context.Background(), "token-1", req)

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", ack.CheckoutRequestID)
		assert.Equal(t, "29115-34620561-1", ack.MerchantRequestID)
	})

	t.Run("GatewayDeclines", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ResponseCode": "1", "ResponseDescription": "The balance is insufficient"}`))
		}))
		defer ts.Close()

		_, err := testClient(ts.URL).InitiateSTKPush(context.Background(), "token-1", req)

		var gatewayErr *GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "1", gatewayErr.Code)
		assert.Equal(t, "The balance is insufficient", gatewayErr.Message)
	})

	t.Run("GatewayHTTPError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errorCode": "400.002.02", "errorMessage": "Bad Request - Invalid PhoneNumber"}`))
		}))
		defer ts.Close()

		_, err := testClient(ts.URL).InitiateSTKPush(context.Background(), "token-1", req)

		var gatewayErr *GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "400.002.02", gatewayErr.Code)
		assert.Equal(t, "Bad Request - Invalid PhoneNumber", gatewayErr.Message)
	})

	t.Run("NetworkError", func(t *testing.T) {
		_, err := testClient("http://127.0.0.1:1").InitiateSTKPush(context.Background(), "token-1", req)

		require.Error(t, err)

		var gatewayErr *GatewayError
		assert.False(t, errors.As(err, &gatewayErr))
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		bad := req
		bad.Amount = 0

		_, err := testClient("http://unused").InitiateSTKPush(context.Background(), "token-1", bad)

		assert.Error(t, err)
	})
}

func TestStkCallback_Metadata(t *testing.T) {
	raw := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))

	cb := envelope.Body.StkCallback
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, 0, cb.ResultCode)

	amount, ok := cb.Amount()
	require.True(t, ok)
	assert.Equal(t, int64(500), amount)

	receipt, ok := cb.ReceiptNumber()
	require.True(t, ok)
	assert.Equal(t, "NLJ7RT61SV", receipt)

	phone, ok := cb.PhoneNumber()
	require.True(t, ok)
	assert.Equal(t, "254712345678", phone)
}

func TestStkCallback_MetadataAbsentOnFailure(t *testing.T) {
	raw := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))

	cb := envelope.Body.StkCallback

	_, ok := cb.Amount()
	assert.False(t, ok)

	_, ok = cb.ReceiptNumber()
	assert.False(t, ok)
}

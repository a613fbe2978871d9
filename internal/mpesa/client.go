// Package mpesa is a client for the Safaricom Daraja STK push API. It builds
// signed push requests and parses responses; it performs no persistence.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"

	// TransactionType sent on every push; the platform only collects
	// paybill payments.
	transactionType = "CustomerPayBillOnline"

	// ResponseCode value Daraja uses for an accepted push.
	responseCodeAccepted = "0"

	timestampLayout = "20060102150405"
)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// AuthError reports a failed credential exchange. Callers must not attempt a
// push without a token.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway auth failed: %v", e.Err)
	}

	return fmt.Sprintf("gateway auth failed: status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// GatewayError reports a push the gateway received but declined. Message is
// the gateway's human-readable description, suitable for surfacing to users.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway rejected push (%s): %s", e.Code, e.Message)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GetAccessToken exchanges the consumer key/secret for a bearer token.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{StatusCode: resp.StatusCode}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decoding token response: %w", err)}
	}

	if tr.AccessToken == "" {
		return "", &AuthError{Err: fmt.Errorf("gateway returned an empty token")}
	}

	return tr.AccessToken, nil
}

// PushRequest describes one STK push. Amount is whole currency units
// (shillings); Daraja rejects fractional amounts, so the caller validates
// before this boundary.
type PushRequest struct {
	Amount           int64
	PhoneNumber      string
	AccountReference string
	Description      string
}

// PushAck is the gateway's acceptance of a push. CheckoutRequestID is the
// correlation id the asynchronous callback echoes back.
type PushAck struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseDescription string
	CustomerMessage     string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiateSTKPush asks the gateway to prompt the payer's phone. The password
// is base64(shortcode+passkey+timestamp) with the timestamp repeated in the
// payload, as Daraja requires.
func (c *Client) InitiateSTKPush(ctx context.Context, token string, pr PushRequest) (*PushAck, error) {
	if pr.Amount <= 0 {
		return nil, fmt.Errorf("push amount must be a positive whole unit, got %d", pr.Amount)
	}

	timestamp := c.now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            pr.Amount,
		PartyA:            pr.PhoneNumber,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       pr.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  pr.AccountReference,
		TransactionDesc:   pr.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating push request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing push request: %w", err)
	}
	defer resp.Body.Close()

	var pushResp stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("decoding push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := pushResp.ErrorCode
		if code == "" {
			code = fmt.Sprintf("http_%d", resp.StatusCode)
		}

		message := pushResp.ErrorMessage
		if message == "" {
			message = "push request was not accepted"
		}

		return nil, &GatewayError{Code: code, Message: message}
	}

	if pushResp.ResponseCode != responseCodeAccepted {
		return nil, &GatewayError{Code: pushResp.ResponseCode, Message: pushResp.ResponseDescription}
	}

	return &PushAck{
		MerchantRequestID:   pushResp.MerchantRequestID,
		CheckoutRequestID:   pushResp.CheckoutRequestID,
		ResponseDescription: pushResp.ResponseDescription,
		CustomerMessage:     pushResp.CustomerMessage,
	}, nil
}

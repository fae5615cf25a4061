// Package paystack implements the payment.Gateway contract against the
// Paystack REST API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hivedesk/hivedesk/pkg/faults"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 30 * time.Second
)

// Client talks to Paystack. Amounts cross the wire in the currency's minor
// unit (kobo), which matches the engine's internal representation.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// New returns a Client authenticated with the given secret key.
func New(secretKey string, options ...ClientOption) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, used to point at a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(client *Client) {
		if baseURL != "" {
			client.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

type initializeRequest struct {
	Email     string         `json:"email"`
	Amount    int64          `json:"amount"`
	Reference string         `json:"reference"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction starts a charge and returns the hosted payment page.
func (client *Client) InitializeTransaction(ctx context.Context, email string, amount ledger.Amount, reference string, metadata map[string]any) (*payment.InitializeResult, error) {
	body := initializeRequest{
		Email:     email,
		Amount:    amount.Int64(),
		Reference: reference,
		Metadata:  metadata,
	}
	var decoded initializeResponse
	if err := client.post(ctx, "/transaction/initialize", body, &decoded); err != nil {
		return nil, err
	}
	return &payment.InitializeResult{
		Success:          decoded.Status,
		AuthorizationURL: decoded.Data.AuthorizationURL,
		AccessCode:       decoded.Data.AccessCode,
		Reference:        decoded.Data.Reference,
		Message:          decoded.Message,
	}, nil
}

// VerifyTransaction fetches the settled state of a charge by reference.
func (client *Client) VerifyTransaction(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	var decoded verifyResponse
	if err := client.get(ctx, "/transaction/verify/"+reference, &decoded); err != nil {
		return nil, err
	}
	return &payment.VerifyResult{
		Success:   decoded.Status,
		Status:    decoded.Data.Status,
		Amount:    ledger.Amount(decoded.Data.Amount),
		Reference: decoded.Data.Reference,
		Message:   decoded.Message,
	}, nil
}

func (client *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return faults.Wrap(faults.KindInternal, "gateway request encoding failed", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return faults.Wrap(faults.KindInternal, "gateway request build failed", err)
	}
	request.Header.Set("Content-Type", "application/json")
	return client.do(request, out)
}

func (client *Client) get(ctx context.Context, path string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
	if err != nil {
		return faults.Wrap(faults.KindInternal, "gateway request build failed", err)
	}
	return client.do(request, out)
}

func (client *Client) do(request *http.Request, out any) error {
	request.Header.Set("Authorization", "Bearer "+client.secretKey)
	response, err := client.httpClient.Do(request)
	if err != nil {
		return faults.Wrap(faults.KindGateway, "gateway request failed", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return faults.Wrap(faults.KindGateway, "gateway response read failed", err)
	}
	if response.StatusCode >= http.StatusInternalServerError {
		return faults.New(faults.KindGateway, fmt.Sprintf("gateway returned status %d", response.StatusCode))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return faults.Wrap(faults.KindGateway, "gateway response decoding failed", err)
	}
	return nil
}

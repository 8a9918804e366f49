package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tunehire/tunehire/internal/config"
)

// Account is the subset of a connected account we act on.
type Account struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// Onboarded reports whether the account has submitted its details and
// can accept charges. This is the single definition of "onboarding
// complete"; payouts_enabled can lag behind and is reported separately
// by the status endpoint.
func (a Account) Onboarded() bool {
	return a.ChargesEnabled && a.DetailsSubmitted
}

// AccountLink is a one-time hosted onboarding URL.
type AccountLink struct {
	URL string `json:"url"`
}

// PaymentIntent is the subset of an intent we act on.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// IntentParams describes a destination charge for one order. Amounts are
// integer cents. The application fee stays on the platform; the rest
// settles on the seller's connected account.
type IntentParams struct {
	AmountCents   int64
	Currency      string
	AppFeeCents   int64
	DestinationID string
	TransferGroup string
	OrderID       string
	ReceiptEmail  string
}

// Client is the payment provider surface the handlers depend on. Tests
// substitute a fake.
type Client interface {
	CreateAccount(ctx context.Context, email string) (Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (AccountLink, error)
	RetrieveAccount(ctx context.Context, accountID string) (Account, error)
	CreatePaymentIntent(ctx context.Context, p IntentParams) (PaymentIntent, error)
}

type stripeClient struct {
	httpClient *http.Client
	baseAPIURL string
	secretKey  string
}

// NewClient builds the real provider client from configuration.
func NewClient(cfg *config.Stripe) Client {
	return &stripeClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseAPIURL: cfg.BaseAPIURL,
		secretKey:  cfg.SecretKey,
	}
}

// apiError mirrors the provider's error envelope.
type apiError struct {
	Err struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *stripeClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseAPIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Err.Message != "" {
			return fmt.Errorf("provider %s: %s", path, apiErr.Err.Message)
		}
		return fmt.Errorf("provider %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *stripeClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseAPIURL+path, nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("provider %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *stripeClient) CreateAccount(ctx context.Context, email string) (Account, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("email", email)
	form.Set("capabilities[card_payments][requested]", "true")
	form.Set("capabilities[transfers][requested]", "true")

	var acct Account
	if err := c.post(ctx, "/v1/accounts", form, &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (c *stripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (AccountLink, error) {
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("refresh_url", refreshURL)
	form.Set("return_url", returnURL)
	form.Set("type", "account_onboarding")

	var link AccountLink
	if err := c.post(ctx, "/v1/account_links", form, &link); err != nil {
		return AccountLink{}, err
	}
	return link, nil
}

func (c *stripeClient) RetrieveAccount(ctx context.Context, accountID string) (Account, error) {
	var acct Account
	if err := c.get(ctx, "/v1/accounts/"+url.PathEscape(accountID), &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (c *stripeClient) CreatePaymentIntent(ctx context.Context, p IntentParams) (PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(p.AmountCents, 10))
	form.Set("currency", p.Currency)
	form.Set("application_fee_amount", strconv.FormatInt(p.AppFeeCents, 10))
	form.Set("transfer_data[destination]", p.DestinationID)
	form.Set("transfer_group", p.TransferGroup)
	form.Set("metadata[orderId]", p.OrderID)
	form.Set("automatic_payment_methods[enabled]", "true")
	if p.ReceiptEmail != "" {
		form.Set("receipt_email", p.ReceiptEmail)
	}

	var intent PaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return PaymentIntent{}, err
	}
	return intent, nil
}

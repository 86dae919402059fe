package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/recapfood/recap-food-api/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal hand-rolled client for the handful of Stripe
// endpoints the billing flow needs. Requests are form-encoded per the Stripe
// API convention.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

type StripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type StripeCheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Customer      string            `json:"customer"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type StripePortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeCheckoutParams carries the inputs for creating a checkout session.
type StripeCheckoutParams struct {
	CustomerID   string
	PriceRef     string
	SuccessURL   string
	CancelURL    string
	UserID       uint
	PlanID       string
	BillingCycle string
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + path
	var reqBody io.Reader
	if method == http.MethodGet {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
	} else if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// FindCustomerByEmail returns the first customer matching the email, or nil
// when Stripe knows no such customer.
func (c *StripeClient) FindCustomerByEmail(ctx context.Context, email string) (*StripeCustomer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("limit", "1")

	var out struct {
		Data []StripeCustomer `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers", form, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email string, userID uint) (*StripeCustomer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[userId]", strconv.FormatUint(uint64(userID), 10))

	var out StripeCustomer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("stripe customer creation returned empty id")
	}
	return &out, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params StripeCheckoutParams) (*StripeCheckoutSession, error) {
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, errors.New("customer id is required")
	}
	if strings.TrimSpace(params.PriceRef) == "" {
		return nil, errors.New("price ref is required")
	}

	form := url.Values{}
	form.Set("customer", params.CustomerID)
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceRef)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("metadata[userId]", strconv.FormatUint(uint64(params.UserID), 10))
	form.Set("metadata[planId]", params.PlanID)
	form.Set("metadata[billingCycle]", params.BillingCycle)

	var out StripeCheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("stripe checkout session creation returned empty id")
	}
	return &out, nil
}

func (c *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*StripeCheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	var out StripeCheckoutSession
	if err := c.do(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*StripePortalSession, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}

	form := url.Values{}
	form.Set("customer", customerID)
	if strings.TrimSpace(returnURL) != "" {
		form.Set("return_url", returnURL)
	}

	var out StripePortalSession
	if err := c.do(ctx, http.MethodPost, "/billing_portal/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe portal session creation returned empty url")
	}
	return &out, nil
}

// CancelActiveSubscriptions cancels every active subscription of the
// customer at the processor. Used as a best-effort companion to the local
// cancel flow.
func (c *StripeClient) CancelActiveSubscriptions(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return errors.New("customer id is required")
	}

	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("status", "active")

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions", form, &list); err != nil {
		return err
	}

	for _, sub := range list.Data {
		if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(sub.ID), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Package billing wraps the Stripe REST API for subscription checkout and
// webhook verification.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hooptrack/backend/internal/app/domain/user"
)

// ErrBadSignature is returned when a webhook payload fails verification.
var ErrBadSignature = errors.New("webhook signature verification failed")

// Plan describes a purchasable tier. Amounts are yearly, in cents.
type Plan struct {
	Tier        user.Tier
	Name        string
	AmountCents int64
}

// Plans lists the purchasable tiers.
var Plans = map[user.Tier]Plan{
	user.TierPro:  {Tier: user.TierPro, Name: "HoopTrack Pro (yearly)", AmountCents: 6999},
	user.TierTeam: {Tier: user.TierTeam, Name: "HoopTrack Team (yearly)", AmountCents: 19999},
}

// CheckoutSession is the subset of a Stripe checkout session the app uses.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"checkout_url"`
}

// WebhookEvent is a parsed Stripe event relevant to subscriptions.
type WebhookEvent struct {
	Type       string
	UserID     string
	Tier       user.Tier
	CustomerID string
}

// Client talks to the Stripe REST API with form-encoded requests.
type Client struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

// New creates a Stripe client. The zero-value secret disables billing; the
// caller is expected to check Enabled before use.
func New(secretKey, webhookSecret string) *Client {
	return &Client{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       "https://api.stripe.com/v1",
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a secret key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.secretKey != ""
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// CreateCheckoutSession starts a hosted checkout for the plan. The user id
// and tier travel in session metadata and come back on the webhook.
func (c *Client) CreateCheckoutSession(ctx context.Context, userID, email string, tier user.Tier, successURL, cancelURL string) (CheckoutSession, error) {
	plan, ok := Plans[tier]
	if !ok {
		return CheckoutSession{}, fmt.Errorf("no purchasable plan for tier %q", tier)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer_email", email)
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(plan.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", plan.Name)
	form.Set("metadata[user_id]", userID)
	form.Set("metadata[tier]", string(tier))

	body, err := c.post(ctx, "/checkout/sessions", form)
	if err != nil {
		return CheckoutSession{}, err
	}

	return CheckoutSession{
		ID:  gjson.GetBytes(body, "id").String(),
		URL: gjson.GetBytes(body, "url").String(),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the fields
// the subscription service acts on. Verification is skipped when no webhook
// secret is configured.
func (c *Client) ParseWebhook(payload []byte, sigHeader string) (WebhookEvent, error) {
	if c.webhookSecret != "" {
		if err := verifySignature(payload, sigHeader, c.webhookSecret, time.Now()); err != nil {
			return WebhookEvent{}, err
		}
	}

	evt := WebhookEvent{
		Type:       gjson.GetBytes(payload, "type").String(),
		UserID:     gjson.GetBytes(payload, "data.object.metadata.user_id").String(),
		CustomerID: gjson.GetBytes(payload, "data.object.customer").String(),
	}
	if tier := gjson.GetBytes(payload, "data.object.metadata.tier").String(); tier != "" {
		evt.Tier = user.Tier(tier)
	}
	return evt, nil
}

const signatureTolerance = 5 * time.Minute

// verifySignature checks the v1 scheme: HMAC-SHA256 over "<timestamp>.<payload>".
func verifySignature(payload []byte, header, secret string, now time.Time) error {
	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if diff := now.Unix() - ts; diff > int64(signatureTolerance.Seconds()) || diff < -int64(signatureTolerance.Seconds()) {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrBadSignature
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("stripe %s: %s", resp.Status, msg)
	}
	return body, nil
}

package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/user"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/sessions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.com/pay/cs_test_1"}`)
	}))
	defer srv.Close()

	c := New("sk_test_123", "")
	c.SetBaseURL(srv.URL)

	sess, err := c.CreateCheckoutSession(context.Background(), "u1", "coach@example.com", user.TierPro, "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("create checkout session: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if got := gotForm["metadata[user_id]"]; len(got) != 1 || got[0] != "u1" {
		t.Fatalf("expected user id in metadata, got %v", got)
	}
	if got := gotForm["line_items[0][price_data][unit_amount]"]; len(got) != 1 || got[0] != "6999" {
		t.Fatalf("expected pro plan amount, got %v", got)
	}
}

func TestCreateCheckoutSessionUnknownTier(t *testing.T) {
	c := New("sk_test_123", "")
	if _, err := c.CreateCheckoutSession(context.Background(), "u1", "a@b.c", user.TierFree, "s", "c"); err == nil {
		t.Fatalf("expected error for free tier checkout")
	}
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid key"}}`)
	}))
	defer srv.Close()

	c := New("sk_bad", "")
	c.SetBaseURL(srv.URL)
	if _, err := c.CreateCheckoutSession(context.Background(), "u1", "a@b.c", user.TierPro, "s", "c"); err == nil {
		t.Fatalf("expected stripe error to propagate")
	}
}

func signPayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_1", "metadata": {"user_id": "u1", "tier": "pro"}}}
	}`)

	c := New("sk_test_123", "whsec_test")
	sig := signPayload(t, payload, "whsec_test", time.Now())

	evt, err := c.ParseWebhook(payload, sig)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if evt.Type != "checkout.session.completed" || evt.UserID != "u1" || evt.Tier != user.TierPro || evt.CustomerID != "cus_1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	c := New("sk_test_123", "whsec_test")

	if _, err := c.ParseWebhook(payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected bad signature, got %v", err)
	}

	stale := signPayload(t, payload, "whsec_test", time.Now().Add(-time.Hour))
	if _, err := c.ParseWebhook(payload, stale); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected stale timestamp rejection, got %v", err)
	}
}

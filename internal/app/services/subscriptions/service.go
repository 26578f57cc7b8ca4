// Package subscriptions handles Stripe checkout, webhook fulfilment, and
// subscription status.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/internal/billing"
	"github.com/hooptrack/backend/pkg/logger"
)

// ErrBillingDisabled is returned when no Stripe key is configured.
var ErrBillingDisabled = errors.New("billing is not configured")

// subscriptionTerm is how long a purchased tier lasts.
const subscriptionTerm = 365 * 24 * time.Hour

// Status is the subscription view returned to clients.
type Status struct {
	Tier    user.Tier  `json:"subscription_tier"`
	Expires *time.Time `json:"subscription_expires,omitempty"`
	Active  bool       `json:"active"`
}

// Service manages subscription state.
type Service struct {
	users            storage.UserStore
	stripe           *billing.Client
	frontendURL      string
	allowTestUpgrade bool
	log              *logger.Logger
	now              func() time.Time
}

// New constructs a subscriptions service.
func New(users storage.UserStore, stripe *billing.Client, frontendURL string, allowTestUpgrade bool, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("subscriptions")
	}
	return &Service{
		users:            users,
		stripe:           stripe,
		frontendURL:      frontendURL,
		allowTestUpgrade: allowTestUpgrade,
		log:              log,
		now:              time.Now,
	}
}

// CreateCheckout starts a hosted Stripe checkout for the tier.
func (s *Service) CreateCheckout(ctx context.Context, userID string, tier user.Tier) (billing.CheckoutSession, error) {
	if !s.stripe.Enabled() {
		return billing.CheckoutSession{}, ErrBillingDisabled
	}
	if tier != user.TierPro && tier != user.TierTeam {
		return billing.CheckoutSession{}, fmt.Errorf("tier must be pro or team")
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return billing.CheckoutSession{}, err
	}

	return s.stripe.CreateCheckoutSession(ctx, u.ID, u.Email, tier,
		s.frontendURL+"/subscription/success",
		s.frontendURL+"/subscription/cancel")
}

// HandleWebhook verifies and applies a Stripe event. Unknown event types are
// acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if !s.stripe.Enabled() {
		return ErrBillingDisabled
	}

	evt, err := s.stripe.ParseWebhook(payload, sigHeader)
	if err != nil {
		return err
	}
	if evt.Type != "checkout.session.completed" {
		return nil
	}
	if evt.UserID == "" || !evt.Tier.Valid() || evt.Tier == user.TierFree {
		return fmt.Errorf("checkout event missing user or tier metadata")
	}

	u, err := s.users.GetUser(ctx, evt.UserID)
	if err != nil {
		return err
	}

	expires := s.now().UTC().Add(subscriptionTerm)
	u.Tier = evt.Tier
	u.SubscriptionExpires = &expires
	if evt.CustomerID != "" {
		u.StripeCustomerID = evt.CustomerID
	}
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}

	s.log.WithField("user_id", u.ID).WithField("tier", string(evt.Tier)).Info("subscription activated")
	return nil
}

// GetStatus returns the user's effective subscription.
func (s *Service) GetStatus(ctx context.Context, userID string) (Status, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	effective := u.EffectiveTier(s.now())
	return Status{
		Tier:    effective,
		Expires: u.SubscriptionExpires,
		Active:  effective != user.TierFree,
	}, nil
}

// TestUpgrade grants a tier without payment. Only available when explicitly
// enabled in configuration.
func (s *Service) TestUpgrade(ctx context.Context, userID string, tier user.Tier) (Status, error) {
	if !s.allowTestUpgrade {
		return Status{}, fmt.Errorf("test upgrades are disabled")
	}
	if !tier.Valid() {
		return Status{}, fmt.Errorf("unknown tier %q", tier)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	u.Tier = tier
	if tier == user.TierFree {
		u.SubscriptionExpires = nil
	} else {
		expires := s.now().UTC().Add(subscriptionTerm)
		u.SubscriptionExpires = &expires
	}
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return Status{}, err
	}
	return s.GetStatus(ctx, userID)
}

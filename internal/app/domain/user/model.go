package user

import "time"

// Tier identifies a subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierTeam Tier = "team"
)

var tierLevels = map[Tier]int{
	TierFree: 0,
	TierPro:  1,
	TierTeam: 2,
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierLevels[t]
	return ok
}

// User represents an account holder. PasswordHash is never serialized.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"`
	Tier                Tier       `json:"subscription_tier"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	StripeCustomerID    string     `json:"-"`
	AuthProvider        string     `json:"auth_provider"`
	CreatedAt           time.Time  `json:"created_at"`
}

// EffectiveTier returns the user's tier, downgraded to free when the
// subscription has expired.
func (u User) EffectiveTier(now time.Time) Tier {
	if u.Tier == "" {
		return TierFree
	}
	if u.SubscriptionExpires != nil && u.SubscriptionExpires.Before(now) {
		return TierFree
	}
	return u.Tier
}

// HasTier reports whether the user meets the required subscription level.
func (u User) HasTier(required Tier, now time.Time) bool {
	return tierLevels[u.EffectiveTier(now)] >= tierLevels[required]
}

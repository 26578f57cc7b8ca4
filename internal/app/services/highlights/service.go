// Package highlights manages highlight reels, a pro-tier feature.
package highlights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/highlight"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

// ErrProTierRequired gates reel creation.
var ErrProTierRequired = errors.New("pro subscription required")

// Completer generates text from a prompt. The ai package satisfies this.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service manages highlight reels.
type Service struct {
	store     storage.HighlightStore
	games     storage.GameStore
	users     storage.UserStore
	completer Completer
	log       *logger.Logger
	now       func() time.Time
}

// New constructs a highlights service. completer may be nil when AI features
// are disabled.
func New(store storage.HighlightStore, games storage.GameStore, users storage.UserStore, completer Completer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("highlights")
	}
	return &Service{store: store, games: games, users: users, completer: completer, log: log, now: time.Now}
}

// Create builds a reel for a pro subscriber. Every referenced game must
// belong to the user.
func (s *Service) Create(ctx context.Context, userID string, r highlight.Reel) (highlight.Reel, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return highlight.Reel{}, fmt.Errorf("name is required")
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return highlight.Reel{}, err
	}
	if !u.HasTier(user.TierPro, s.now()) {
		return highlight.Reel{}, ErrProTierRequired
	}

	for _, gameID := range r.GameIDs {
		g, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			return highlight.Reel{}, fmt.Errorf("game %s: %w", gameID, err)
		}
		if g.UserID != userID {
			return highlight.Reel{}, fmt.Errorf("game %s: %w", gameID, storage.ErrNotFound)
		}
	}

	r.UserID = userID
	created, err := s.store.CreateReel(ctx, r)
	if err != nil {
		return highlight.Reel{}, err
	}
	s.log.WithField("reel_id", created.ID).WithField("user_id", userID).Info("highlight reel created")
	return created, nil
}

// List returns the user's reels.
func (s *Service) List(ctx context.Context, userID string) ([]highlight.Reel, error) {
	return s.store.ListReels(ctx, userID)
}

// GetOwned loads a reel and verifies ownership.
func (s *Service) GetOwned(ctx context.Context, userID, reelID string) (highlight.Reel, error) {
	r, err := s.store.GetReel(ctx, reelID)
	if err != nil {
		return highlight.Reel{}, err
	}
	if r.UserID != userID {
		return highlight.Reel{}, storage.ErrNotFound
	}
	return r, nil
}

// Delete removes a reel the user owns.
func (s *Service) Delete(ctx context.Context, userID, reelID string) error {
	if _, err := s.GetOwned(ctx, userID, reelID); err != nil {
		return err
	}
	return s.store.DeleteReel(ctx, reelID)
}

// Describe generates and stores a short share-ready description of the reel.
func (s *Service) Describe(ctx context.Context, userID, reelID string) (highlight.Reel, error) {
	r, err := s.GetOwned(ctx, userID, reelID)
	if err != nil {
		return highlight.Reel{}, err
	}
	if s.completer == nil {
		return highlight.Reel{}, fmt.Errorf("ai features are not configured")
	}

	var opponents []string
	for _, gameID := range r.GameIDs {
		g, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			continue
		}
		opponents = append(opponents, fmt.Sprintf("vs %s (%d-%d)", g.OpponentName, g.OurScore, g.OpponentScore))
	}

	prompt := fmt.Sprintf("Write a 1-2 sentence energetic description for a basketball highlight reel named %q", r.Name)
	if r.Season != "" {
		prompt += fmt.Sprintf(" from the %s season", r.Season)
	}
	if len(opponents) > 0 {
		prompt += " covering these games: " + strings.Join(opponents, ", ")
	}
	prompt += "."

	description, err := s.completer.Complete(ctx, "You write short, punchy social media captions for youth basketball highlights.", prompt)
	if err != nil {
		return highlight.Reel{}, err
	}

	r.AIDescription = description
	return s.store.UpdateReel(ctx, r)
}

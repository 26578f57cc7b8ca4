// Package games manages game lifecycles and routes all live stat entry
// through the ledger engine.
package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/ledger"
	"github.com/hooptrack/backend/internal/app/metrics"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

var (
	// ErrGameCompleted is returned when live stat entry targets a finished
	// game. Adjustments remain allowed as the correction path.
	ErrGameCompleted = errors.New("game is completed; use adjustments to correct stats")
	// ErrProTierRequired gates video attachments and AI summaries.
	ErrProTierRequired = errors.New("pro subscription required")
)

// Notifier receives the updated aggregate after every successful mutation.
// Implementations must not block the request path on failure.
type Notifier interface {
	GameUpdated(ctx context.Context, g game.Game)
}

// freeCompletedLimit is how many finished games a free account can see.
const freeCompletedLimit = 2

// casRetries bounds how many times a mutation is replayed after losing the
// revision check to a concurrent writer.
const casRetries = 3

// CreateParams carries the fields accepted when starting a game.
type CreateParams struct {
	TeamID       string
	HomeTeamName string
	OpponentName string
	GameDate     time.Time
	Location     string
	GameType     string
	Venue        string
	PeriodType   string
	PlayerIDs    []string
	Notes        string
	Tags         []string
}

// UpdateParams carries optional metadata changes. Nil pointers leave the
// field untouched.
type UpdateParams struct {
	HomeTeamName    *string
	OpponentName    *string
	GameDate        *time.Time
	Location        *string
	GameType        *string
	Venue           *string
	OpponentScore   *int
	CurrentPeriod   *int
	Status          *string
	Notes           *string
	Tags            []string
	ScoreboardPhoto *string
}

// Service manages games.
type Service struct {
	store     storage.GameStore
	players   storage.PlayerStore
	users     storage.UserStore
	notifiers []Notifier
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// New constructs a games service. Notifiers may be nil.
func New(store storage.GameStore, players storage.PlayerStore, users storage.UserStore, log *logger.Logger, notifiers ...Notifier) *Service {
	if log == nil {
		log = logger.NewDefault("games")
	}
	return &Service{
		store:     store,
		players:   players,
		users:     users,
		notifiers: notifiers,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create starts a game, snapshotting the roster names so later player edits
// don't rewrite history.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (game.Game, error) {
	params.OpponentName = strings.TrimSpace(params.OpponentName)
	if params.OpponentName == "" {
		return game.Game{}, fmt.Errorf("opponent_name is required")
	}
	if params.PeriodType == "" {
		params.PeriodType = game.PeriodQuarters
	}
	if params.PeriodType != game.PeriodQuarters && params.PeriodType != game.PeriodHalves {
		return game.Game{}, fmt.Errorf("period_type must be %q or %q", game.PeriodQuarters, game.PeriodHalves)
	}
	if params.GameDate.IsZero() {
		params.GameDate = s.now().UTC()
	}

	lines := make([]game.PlayerLine, 0, len(params.PlayerIDs))
	for _, playerID := range params.PlayerIDs {
		p, err := s.players.GetPlayer(ctx, playerID)
		if err != nil {
			return game.Game{}, fmt.Errorf("roster player %s: %w", playerID, err)
		}
		if p.UserID != userID {
			return game.Game{}, fmt.Errorf("roster player %s: %w", playerID, storage.ErrNotFound)
		}
		lines = append(lines, game.PlayerLine{PlayerID: p.ID, PlayerName: p.Name})
	}

	g := game.Game{
		UserID:        userID,
		TeamID:        params.TeamID,
		HomeTeamName:  strings.TrimSpace(params.HomeTeamName),
		OpponentName:  params.OpponentName,
		GameDate:      params.GameDate.UTC(),
		Location:      params.Location,
		GameType:      params.GameType,
		Venue:         params.Venue,
		PeriodType:    params.PeriodType,
		Status:        game.StatusInProgress,
		CurrentPeriod: 1,
		Players:       lines,
	}

	created, err := s.store.CreateGame(ctx, g)
	if err != nil {
		return game.Game{}, err
	}
	s.log.WithField("game_id", created.ID).WithField("user_id", userID).Info("game created")
	return created, nil
}

// List returns the user's games newest first. Free accounts see every
// in-progress game but only their most recent completed ones.
func (s *Service) List(ctx context.Context, userID string, q storage.GameQuery) ([]game.Game, error) {
	q.UserID = userID
	games, err := s.store.ListGames(ctx, q)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HasTier(user.TierPro, s.now()) {
		return games, nil
	}

	filtered := games[:0]
	completed := 0
	for _, g := range games {
		if g.Status == game.StatusCompleted {
			if completed >= freeCompletedLimit {
				continue
			}
			completed++
		}
		filtered = append(filtered, g)
	}
	return filtered, nil
}

// GetOwned loads a game and verifies ownership.
func (s *Service) GetOwned(ctx context.Context, userID, gameID string) (game.Game, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return game.Game{}, err
	}
	if g.UserID != userID {
		return game.Game{}, storage.ErrNotFound
	}
	return g, nil
}

// Update applies metadata changes. Transitioning to completed stamps
// CompletedAt; reopening clears it. Editing a game that is already completed
// requires the pro tier.
func (s *Service) Update(ctx context.Context, userID, gameID string, params UpdateParams) (game.Game, error) {
	if params.Status != nil {
		if *params.Status != game.StatusInProgress && *params.Status != game.StatusCompleted {
			return game.Game{}, fmt.Errorf("status must be %q or %q", game.StatusInProgress, game.StatusCompleted)
		}
	}
	if params.OpponentScore != nil && *params.OpponentScore < 0 {
		return game.Game{}, fmt.Errorf("opponent_score cannot be negative")
	}
	if params.CurrentPeriod != nil && *params.CurrentPeriod < 1 {
		return game.Game{}, fmt.Errorf("current_period must be at least 1")
	}

	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		if g.Status == game.StatusCompleted {
			u, err := s.users.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			if !u.HasTier(user.TierPro, s.now()) {
				return ErrProTierRequired
			}
		}
		if params.HomeTeamName != nil {
			g.HomeTeamName = strings.TrimSpace(*params.HomeTeamName)
		}
		if params.OpponentName != nil {
			if name := strings.TrimSpace(*params.OpponentName); name != "" {
				g.OpponentName = name
			}
		}
		if params.GameDate != nil {
			g.GameDate = params.GameDate.UTC()
		}
		if params.Location != nil {
			g.Location = *params.Location
		}
		if params.GameType != nil {
			g.GameType = *params.GameType
		}
		if params.Venue != nil {
			g.Venue = *params.Venue
		}
		if params.OpponentScore != nil {
			g.OpponentScore = *params.OpponentScore
		}
		if params.CurrentPeriod != nil {
			g.CurrentPeriod = *params.CurrentPeriod
		}
		if params.Notes != nil {
			g.Notes = *params.Notes
		}
		if params.Tags != nil {
			g.Tags = params.Tags
		}
		if params.ScoreboardPhoto != nil {
			g.ScoreboardPhoto = *params.ScoreboardPhoto
		}
		if params.Status != nil && *params.Status != g.Status {
			g.Status = *params.Status
			if g.Status == game.StatusCompleted {
				now := s.now().UTC()
				g.CompletedAt = &now
			} else {
				g.CompletedAt = nil
			}
		}
		return nil
	})
}

// Delete removes a game the user owns.
func (s *Service) Delete(ctx context.Context, userID, gameID string) error {
	if _, err := s.GetOwned(ctx, userID, gameID); err != nil {
		return err
	}
	return s.store.DeleteGame(ctx, gameID)
}

// RecordStat applies one live stat event.
func (s *Service) RecordStat(ctx context.Context, userID, gameID, playerID string, kind game.StatKind, value int, loc *ledger.ShotLocation) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		if g.Status == game.StatusCompleted {
			return ErrGameCompleted
		}
		return ledger.Apply(g, playerID, kind, value, loc, s.now().UTC(), s.newID)
	})
}

// AdjustStat applies an unlogged correction. Unlike live entry this is
// allowed on completed games.
func (s *Service) AdjustStat(ctx context.Context, userID, gameID, playerID string, kind ledger.AdjustKind, delta int) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		return ledger.Adjust(g, playerID, kind, delta)
	})
}

// UndoLast reverses the most recent ledger event.
func (s *Service) UndoLast(ctx context.Context, userID, gameID string) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		if g.Status == game.StatusCompleted {
			return ErrGameCompleted
		}
		return ledger.UndoLast(g)
	})
}

// UndoAt reverses the event at the given most-recent-first display index.
func (s *Service) UndoAt(ctx context.Context, userID, gameID string, displayIndex int) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		if g.Status == game.StatusCompleted {
			return ErrGameCompleted
		}
		return ledger.UndoAt(g, displayIndex)
	})
}

// DeleteShot removes a charted shot and reverses its stats.
func (s *Service) DeleteShot(ctx context.Context, userID, gameID, playerID string, shotIndex int) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		return ledger.DeleteShot(g, playerID, shotIndex)
	})
}

// MoveShot repositions a charted shot without touching any counters.
func (s *Service) MoveShot(ctx context.Context, userID, gameID, playerID string, shotIndex int, x, y float64) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		return ledger.MoveShot(g, playerID, shotIndex, x, y)
	})
}

// AddMedia attaches a photo or video. Video requires the pro tier.
func (s *Service) AddMedia(ctx context.Context, userID, gameID string, m game.Media) (game.Game, error) {
	if m.Type != "photo" && m.Type != "video" {
		return game.Game{}, fmt.Errorf("media type must be photo or video")
	}
	if m.Data == "" {
		return game.Game{}, fmt.Errorf("media data is required")
	}
	if m.Type == "video" {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return game.Game{}, err
		}
		if !u.HasTier(user.TierPro, s.now()) {
			return game.Game{}, ErrProTierRequired
		}
	}

	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		m.ID = s.newID()
		m.CreatedAt = s.now().UTC()
		g.Media = append(g.Media, m)
		return nil
	})
}

// RemoveMedia detaches a media item by id.
func (s *Service) RemoveMedia(ctx context.Context, userID, gameID, mediaID string) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		for i := range g.Media {
			if g.Media[i].ID == mediaID {
				g.Media = append(g.Media[:i], g.Media[i+1:]...)
				return nil
			}
		}
		return storage.ErrNotFound
	})
}

// SetSummary stores a generated recap on the game.
func (s *Service) SetSummary(ctx context.Context, userID, gameID, summary string) (game.Game, error) {
	return s.mutate(ctx, userID, gameID, func(g *game.Game) error {
		g.AISummary = summary
		return nil
	})
}

// mutate loads the game, applies fn, and saves under the revision check,
// replaying against fresh state when a concurrent writer wins the race.
func (s *Service) mutate(ctx context.Context, userID, gameID string, fn func(*game.Game) error) (game.Game, error) {
	for attempt := 0; ; attempt++ {
		g, err := s.GetOwned(ctx, userID, gameID)
		if err != nil {
			return game.Game{}, err
		}
		if err := fn(&g); err != nil {
			return game.Game{}, err
		}

		saved, err := s.store.UpdateGame(ctx, g)
		if err == nil {
			s.notify(ctx, saved)
			return saved, nil
		}
		if !errors.Is(err, storage.ErrConflict) || attempt >= casRetries {
			return game.Game{}, err
		}
		metrics.RecordRevisionConflict()
		s.log.WithField("game_id", gameID).Debug("revision conflict, retrying")
	}
}

func (s *Service) notify(ctx context.Context, g game.Game) {
	for _, n := range s.notifiers {
		if n != nil {
			n.GameUpdated(ctx, g)
		}
	}
}

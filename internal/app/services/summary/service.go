// Package summary generates AI game recaps for pro subscribers.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/services/games"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

// ErrProTierRequired gates summary generation.
var ErrProTierRequired = errors.New("pro subscription required")

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service generates and stores game recaps.
type Service struct {
	games     *games.Service
	users     storage.UserStore
	completer Completer
	log       *logger.Logger
	now       func() time.Time
}

// New constructs a summary service. completer may be nil when AI features
// are disabled.
func New(gamesSvc *games.Service, users storage.UserStore, completer Completer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("summary")
	}
	return &Service{games: gamesSvc, users: users, completer: completer, log: log, now: time.Now}
}

// Generate writes a recap of the game's box score onto the game.
func (s *Service) Generate(ctx context.Context, userID, gameID string) (game.Game, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return game.Game{}, err
	}
	if !u.HasTier(user.TierPro, s.now()) {
		return game.Game{}, ErrProTierRequired
	}
	if s.completer == nil {
		return game.Game{}, fmt.Errorf("ai features are not configured")
	}

	g, err := s.games.GetOwned(ctx, userID, gameID)
	if err != nil {
		return game.Game{}, err
	}

	recap, err := s.completer.Complete(ctx,
		"You are a sports journalist writing short recaps of youth basketball games. Keep it to one paragraph and mention standout performances.",
		buildPrompt(g))
	if err != nil {
		return game.Game{}, err
	}

	updated, err := s.games.SetSummary(ctx, userID, gameID, recap)
	if err != nil {
		return game.Game{}, err
	}
	s.log.WithField("game_id", gameID).Info("game summary generated")
	return updated, nil
}

func buildPrompt(g game.Game) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Final score: %s %d, %s %d.\n", teamName(g), g.OurScore, g.OpponentName, g.OpponentScore)
	if !g.GameDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s.\n", g.GameDate.Format("January 2, 2006"))
	}
	b.WriteString("Player lines:\n")
	for _, line := range g.Players {
		st := line.Stats
		fmt.Fprintf(&b, "- %s: %d pts, %d reb, %d ast, %d stl, %d blk, FG %d/%d, 3PT %d/%d, FT %d/%d\n",
			line.PlayerName, st.Points, st.Rebounds, st.Assists, st.Steals, st.Blocks,
			st.FGMade, st.FGAttempted, st.ThreePtMade, st.ThreePtAttempted, st.FTMade, st.FTAttempted)
	}
	return b.String()
}

func teamName(g game.Game) string {
	if g.HomeTeamName != "" {
		return g.HomeTeamName
	}
	return "Our team"
}

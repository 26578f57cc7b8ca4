// Package stats aggregates per-player box scores across games into season
// totals, averages, and shooting percentages.
package stats

import (
	"context"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

// GameLine is one game's contribution to a player's season.
type GameLine struct {
	GameID       string        `json:"game_id"`
	OpponentName string        `json:"opponent_name"`
	GameDate     time.Time     `json:"game_date"`
	Status       string        `json:"status"`
	Stats        game.BoxScore `json:"stats"`
}

// Season is the aggregated view returned for a player.
type Season struct {
	Player      player.Player `json:"player"`
	GamesPlayed int           `json:"games_played"`
	Totals      game.BoxScore `json:"totals"`

	PointsPerGame   float64 `json:"points_per_game"`
	ReboundsPerGame float64 `json:"rebounds_per_game"`
	AssistsPerGame  float64 `json:"assists_per_game"`
	StealsPerGame   float64 `json:"steals_per_game"`
	BlocksPerGame   float64 `json:"blocks_per_game"`

	FGPercent      float64 `json:"fg_percent"`
	ThreePtPercent float64 `json:"three_pt_percent"`
	FTPercent      float64 `json:"ft_percent"`

	History []GameLine `json:"game_history"`
}

// Service computes season aggregates.
type Service struct {
	games   storage.GameStore
	players storage.PlayerStore
	log     *logger.Logger
}

// New constructs a stats service.
func New(games storage.GameStore, players storage.PlayerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &Service{games: games, players: players, log: log}
}

// PlayerSeason aggregates every game of the user's that includes the player.
// A game counts toward games_played only when the player's line is non-empty.
func (s *Service) PlayerSeason(ctx context.Context, userID, playerID string) (Season, error) {
	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return Season{}, err
	}
	if p.UserID != userID {
		return Season{}, storage.ErrNotFound
	}

	games, err := s.games.ListGames(ctx, storage.GameQuery{UserID: userID, PlayerID: playerID})
	if err != nil {
		return Season{}, err
	}

	season := Season{Player: p, History: []GameLine{}}
	for _, g := range games {
		line := g.Line(playerID)
		if line == nil {
			continue
		}
		season.History = append(season.History, GameLine{
			GameID:       g.ID,
			OpponentName: g.OpponentName,
			GameDate:     g.GameDate,
			Status:       g.Status,
			Stats:        line.Stats,
		})
		if line.Stats.IsZero() {
			continue
		}
		season.GamesPlayed++
		addBox(&season.Totals, line.Stats)
	}

	if season.GamesPlayed > 0 {
		n := float64(season.GamesPlayed)
		season.PointsPerGame = round1(float64(season.Totals.Points) / n)
		season.ReboundsPerGame = round1(float64(season.Totals.Rebounds) / n)
		season.AssistsPerGame = round1(float64(season.Totals.Assists) / n)
		season.StealsPerGame = round1(float64(season.Totals.Steals) / n)
		season.BlocksPerGame = round1(float64(season.Totals.Blocks) / n)
	}
	season.FGPercent = percent(season.Totals.FGMade, season.Totals.FGAttempted)
	season.ThreePtPercent = percent(season.Totals.ThreePtMade, season.Totals.ThreePtAttempted)
	season.FTPercent = percent(season.Totals.FTMade, season.Totals.FTAttempted)

	return season, nil
}

func addBox(dst *game.BoxScore, src game.BoxScore) {
	dst.Points += src.Points
	dst.Rebounds += src.Rebounds
	dst.OffensiveRebounds += src.OffensiveRebounds
	dst.DefensiveRebounds += src.DefensiveRebounds
	dst.Assists += src.Assists
	dst.Steals += src.Steals
	dst.Blocks += src.Blocks
	dst.Turnovers += src.Turnovers
	dst.Fouls += src.Fouls
	dst.FGMade += src.FGMade
	dst.FGAttempted += src.FGAttempted
	dst.ThreePtMade += src.ThreePtMade
	dst.ThreePtAttempted += src.ThreePtAttempted
	dst.FTMade += src.FTMade
	dst.FTAttempted += src.FTAttempted
	dst.PlusMinus += src.PlusMinus
	dst.SecondsPlayed += src.SecondsPlayed
}

func percent(made, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return round1(float64(made) / float64(attempted) * 100)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

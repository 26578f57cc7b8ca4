// Package storage defines the persistence interfaces consumed by the
// application services.
package storage

import (
	"context"
	"errors"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/highlight"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/domain/team"
	"github.com/hooptrack/backend/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an optimistic update loses the revision
	// check and should be retried against fresh state.
	ErrConflict = errors.New("revision conflict")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
}

// PlayerStore persists roster players.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, p player.Player) (player.Player, error)
	UpdatePlayer(ctx context.Context, p player.Player) (player.Player, error)
	GetPlayer(ctx context.Context, id string) (player.Player, error)
	ListPlayers(ctx context.Context, userID, teamID string) ([]player.Player, error)
	DeletePlayer(ctx context.Context, id string) error
}

// TeamStore persists teams.
type TeamStore interface {
	CreateTeam(ctx context.Context, t team.Team) (team.Team, error)
	UpdateTeam(ctx context.Context, t team.Team) (team.Team, error)
	GetTeam(ctx context.Context, id string) (team.Team, error)
	ListTeams(ctx context.Context, userID string) ([]team.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// GameQuery filters a game listing. Zero fields match everything.
type GameQuery struct {
	UserID   string
	TeamID   string
	Status   string
	PlayerID string
	Limit    int
}

// GameStore persists game aggregates. UpdateGame performs a compare-and-swap
// on the game's revision and returns ErrConflict when the stored revision no
// longer matches.
type GameStore interface {
	CreateGame(ctx context.Context, g game.Game) (game.Game, error)
	UpdateGame(ctx context.Context, g game.Game) (game.Game, error)
	GetGame(ctx context.Context, id string) (game.Game, error)
	ListGames(ctx context.Context, q GameQuery) ([]game.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

// HighlightStore persists highlight reels.
type HighlightStore interface {
	CreateReel(ctx context.Context, r highlight.Reel) (highlight.Reel, error)
	UpdateReel(ctx context.Context, r highlight.Reel) (highlight.Reel, error)
	GetReel(ctx context.Context, id string) (highlight.Reel, error)
	ListReels(ctx context.Context, userID string) ([]highlight.Reel, error)
	DeleteReel(ctx context.Context, id string) error
}

// Package players manages the user's roster.
package players

import (
	"context"
	"fmt"
	"strings"

	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

// Service manages roster players.
type Service struct {
	store storage.PlayerStore
	teams storage.TeamStore
	log   *logger.Logger
}

// New constructs a players service.
func New(store storage.PlayerStore, teams storage.TeamStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("players")
	}
	return &Service{store: store, teams: teams, log: log}
}

// Create adds a player to the user's roster. A non-empty teamID must name a
// team the user owns.
func (s *Service) Create(ctx context.Context, userID string, p player.Player) (player.Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return player.Player{}, fmt.Errorf("name is required")
	}
	if p.Number < 0 || p.Number > 99 {
		return player.Player{}, fmt.Errorf("number must be between 0 and 99")
	}
	if p.TeamID != "" {
		if err := s.checkTeamOwned(ctx, userID, p.TeamID); err != nil {
			return player.Player{}, err
		}
	}

	p.UserID = userID
	created, err := s.store.CreatePlayer(ctx, p)
	if err != nil {
		return player.Player{}, err
	}
	s.log.WithField("player_id", created.ID).WithField("user_id", userID).Info("player created")
	return created, nil
}

// Update modifies a player the user owns.
func (s *Service) Update(ctx context.Context, userID, playerID string, p player.Player) (player.Player, error) {
	existing, err := s.GetOwned(ctx, userID, playerID)
	if err != nil {
		return player.Player{}, err
	}

	if name := strings.TrimSpace(p.Name); name != "" {
		existing.Name = name
	}
	if p.Number != 0 {
		if p.Number < 0 || p.Number > 99 {
			return player.Player{}, fmt.Errorf("number must be between 0 and 99")
		}
		existing.Number = p.Number
	}
	if p.Position != "" {
		existing.Position = p.Position
	}
	if p.Photo != "" {
		existing.Photo = p.Photo
	}
	if p.TeamID != existing.TeamID {
		if p.TeamID != "" {
			if err := s.checkTeamOwned(ctx, userID, p.TeamID); err != nil {
				return player.Player{}, err
			}
		}
		existing.TeamID = p.TeamID
	}

	return s.store.UpdatePlayer(ctx, existing)
}

// List returns the user's players, optionally filtered by team.
func (s *Service) List(ctx context.Context, userID, teamID string) ([]player.Player, error) {
	return s.store.ListPlayers(ctx, userID, teamID)
}

// GetOwned loads a player and verifies ownership. Players belonging to other
// users are reported as not found.
func (s *Service) GetOwned(ctx context.Context, userID, playerID string) (player.Player, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return player.Player{}, err
	}
	if p.UserID != userID {
		return player.Player{}, storage.ErrNotFound
	}
	return p, nil
}

// Delete removes a player the user owns.
func (s *Service) Delete(ctx context.Context, userID, playerID string) error {
	if _, err := s.GetOwned(ctx, userID, playerID); err != nil {
		return err
	}
	return s.store.DeletePlayer(ctx, playerID)
}

func (s *Service) checkTeamOwned(ctx context.Context, userID, teamID string) error {
	t, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("team validation failed: %w", err)
	}
	if t.UserID != userID {
		return fmt.Errorf("team validation failed: %w", storage.ErrNotFound)
	}
	return nil
}

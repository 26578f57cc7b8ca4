// Package teams manages team records and roster assignment.
package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/team"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

// ErrTeamTierRequired is returned when a free or pro user tries to create a
// team.
var ErrTeamTierRequired = errors.New("team subscription required")

// Service manages teams. Creating a team requires the team tier.
type Service struct {
	store   storage.TeamStore
	players storage.PlayerStore
	users   storage.UserStore
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a teams service.
func New(store storage.TeamStore, players storage.PlayerStore, users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("teams")
	}
	return &Service{store: store, players: players, users: users, log: log, now: time.Now}
}

// Create adds a team for a team-tier subscriber.
func (s *Service) Create(ctx context.Context, userID string, t team.Team) (team.Team, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return team.Team{}, fmt.Errorf("name is required")
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return team.Team{}, err
	}
	if !u.HasTier(user.TierTeam, s.now()) {
		return team.Team{}, ErrTeamTierRequired
	}

	t.UserID = userID
	created, err := s.store.CreateTeam(ctx, t)
	if err != nil {
		return team.Team{}, err
	}
	s.log.WithField("team_id", created.ID).WithField("user_id", userID).Info("team created")
	return created, nil
}

// Update modifies a team the user owns.
func (s *Service) Update(ctx context.Context, userID, teamID string, t team.Team) (team.Team, error) {
	existing, err := s.GetOwned(ctx, userID, teamID)
	if err != nil {
		return team.Team{}, err
	}

	if name := strings.TrimSpace(t.Name); name != "" {
		existing.Name = name
	}
	if t.Logo != "" {
		existing.Logo = t.Logo
	}
	if t.ColorPrimary != "" {
		existing.ColorPrimary = t.ColorPrimary
	}
	if t.ColorSecondary != "" {
		existing.ColorSecondary = t.ColorSecondary
	}

	return s.store.UpdateTeam(ctx, existing)
}

// List returns the user's teams.
func (s *Service) List(ctx context.Context, userID string) ([]team.Team, error) {
	return s.store.ListTeams(ctx, userID)
}

// GetOwned loads a team and verifies ownership.
func (s *Service) GetOwned(ctx context.Context, userID, teamID string) (team.Team, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return team.Team{}, err
	}
	if t.UserID != userID {
		return team.Team{}, storage.ErrNotFound
	}
	return t, nil
}

// Delete removes a team and unassigns its players.
func (s *Service) Delete(ctx context.Context, userID, teamID string) error {
	if _, err := s.GetOwned(ctx, userID, teamID); err != nil {
		return err
	}

	roster, err := s.players.ListPlayers(ctx, userID, teamID)
	if err != nil {
		return err
	}
	for _, p := range roster {
		p.TeamID = ""
		if _, err := s.players.UpdatePlayer(ctx, p); err != nil {
			return err
		}
	}
	return s.store.DeleteTeam(ctx, teamID)
}

// AddPlayer assigns one of the user's players to the team.
func (s *Service) AddPlayer(ctx context.Context, userID, teamID, playerID string) error {
	if _, err := s.GetOwned(ctx, userID, teamID); err != nil {
		return err
	}

	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return storage.ErrNotFound
	}
	if p.TeamID == teamID {
		return nil
	}

	p.TeamID = teamID
	_, err = s.players.UpdatePlayer(ctx, p)
	return err
}

// RemovePlayer takes a player off the team.
func (s *Service) RemovePlayer(ctx context.Context, userID, teamID, playerID string) error {
	if _, err := s.GetOwned(ctx, userID, teamID); err != nil {
		return err
	}

	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if p.UserID != userID || p.TeamID != teamID {
		return storage.ErrNotFound
	}

	p.TeamID = ""
	_, err = s.players.UpdatePlayer(ctx, p)
	return err
}

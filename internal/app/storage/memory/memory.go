// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/highlight"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/domain/team"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
)

// Store implements every storage interface with maps guarded by one lock.
type Store struct {
	mu         sync.RWMutex
	users      map[string]user.User
	players    map[string]player.Player
	teams      map[string]team.Team
	games      map[string]game.Game
	highlights map[string]highlight.Reel
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PlayerStore = (*Store)(nil)
var _ storage.TeamStore = (*Store)(nil)
var _ storage.GameStore = (*Store)(nil)
var _ storage.HighlightStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]user.User),
		players:    make(map[string]player.Player),
		teams:      make(map[string]team.Team),
		games:      make(map[string]game.Game),
		highlights: make(map[string]highlight.Reel),
	}
}

// UserStore --------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

// PlayerStore ------------------------------------------------------------

func (s *Store) CreatePlayer(_ context.Context, p player.Player) (player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.players[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePlayer(_ context.Context, p player.Player) (player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.players[p.ID]
	if !ok {
		return player.Player{}, storage.ErrNotFound
	}
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	s.players[p.ID] = p
	return p, nil
}

func (s *Store) GetPlayer(_ context.Context, id string) (player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return player.Player{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPlayers(_ context.Context, userID, teamID string) ([]player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []player.Player
	for _, p := range s.players {
		if userID != "" && p.UserID != userID {
			continue
		}
		if teamID != "" && p.TeamID != teamID {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p player.Player) (time.Time, string) { return p.CreatedAt, p.ID })
	return result, nil
}

func (s *Store) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.players, id)
	return nil
}

// TeamStore --------------------------------------------------------------

func (s *Store) CreateTeam(_ context.Context, t team.Team) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.teams[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTeam(_ context.Context, t team.Team) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.teams[t.ID]
	if !ok {
		return team.Team{}, storage.ErrNotFound
	}
	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	s.teams[t.ID] = t
	return t, nil
}

func (s *Store) GetTeam(_ context.Context, id string) (team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return team.Team{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTeams(_ context.Context, userID string) ([]team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []team.Team
	for _, t := range s.teams {
		if userID != "" && t.UserID != userID {
			continue
		}
		result = append(result, t)
	}
	sortByCreated(result, func(t team.Team) (time.Time, string) { return t.CreatedAt, t.ID })
	return result, nil
}

func (s *Store) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.teams, id)
	return nil
}

// GameStore --------------------------------------------------------------

func (s *Store) CreateGame(_ context.Context, g game.Game) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.Revision = 1
	s.games[g.ID] = cloneGame(g)
	return g, nil
}

// UpdateGame applies a compare-and-swap on the stored revision.
func (s *Store) UpdateGame(_ context.Context, g game.Game) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.games[g.ID]
	if !ok {
		return game.Game{}, storage.ErrNotFound
	}
	if existing.Revision != g.Revision {
		return game.Game{}, storage.ErrConflict
	}
	g.UserID = existing.UserID
	g.CreatedAt = existing.CreatedAt
	g.Revision++
	s.games[g.ID] = cloneGame(g)
	return g, nil
}

func (s *Store) GetGame(_ context.Context, id string) (game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return game.Game{}, storage.ErrNotFound
	}
	return cloneGame(g), nil
}

func (s *Store) ListGames(_ context.Context, q storage.GameQuery) ([]game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []game.Game
	for _, g := range s.games {
		if q.UserID != "" && g.UserID != q.UserID {
			continue
		}
		if q.TeamID != "" && g.TeamID != q.TeamID {
			continue
		}
		if q.Status != "" && g.Status != q.Status {
			continue
		}
		if q.PlayerID != "" && g.Line(q.PlayerID) == nil {
			continue
		}
		result = append(result, cloneGame(g))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].GameDate.Equal(result[j].GameDate) {
			return result[i].GameDate.After(result[j].GameDate)
		}
		return result[i].ID < result[j].ID
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *Store) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.games, id)
	return nil
}

// HighlightStore ---------------------------------------------------------

func (s *Store) CreateReel(_ context.Context, r highlight.Reel) (highlight.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.highlights[r.ID] = r
	return r, nil
}

func (s *Store) UpdateReel(_ context.Context, r highlight.Reel) (highlight.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.highlights[r.ID]
	if !ok {
		return highlight.Reel{}, storage.ErrNotFound
	}
	r.UserID = existing.UserID
	r.CreatedAt = existing.CreatedAt
	s.highlights[r.ID] = r
	return r, nil
}

func (s *Store) GetReel(_ context.Context, id string) (highlight.Reel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.highlights[id]
	if !ok {
		return highlight.Reel{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReels(_ context.Context, userID string) ([]highlight.Reel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []highlight.Reel
	for _, r := range s.highlights {
		if userID != "" && r.UserID != userID {
			continue
		}
		result = append(result, r)
	}
	sortByCreated(result, func(r highlight.Reel) (time.Time, string) { return r.CreatedAt, r.ID })
	return result, nil
}

func (s *Store) DeleteReel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.highlights[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.highlights, id)
	return nil
}

// cloneGame deep-copies the aggregate so callers can't mutate stored state.
func cloneGame(g game.Game) game.Game {
	out := g
	out.Players = make([]game.PlayerLine, len(g.Players))
	for i, line := range g.Players {
		out.Players[i] = line
		out.Players[i].Shots = append([]game.ShotAttempt(nil), line.Shots...)
	}
	out.Events = append([]game.StatEvent(nil), g.Events...)
	out.Media = append([]game.Media(nil), g.Media...)
	out.Tags = append([]string(nil), g.Tags...)
	return out
}

func sortByCreated[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}

// Package postgres implements the storage interfaces backed by PostgreSQL.
// Game aggregates keep their embedded box scores, ledger, and media as JSONB
// columns; everything else is relational.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/highlight"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/domain/team"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PlayerStore = (*Store)(nil)
var _ storage.TeamStore = (*Store)(nil)
var _ storage.GameStore = (*Store)(nil)
var _ storage.HighlightStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ht_users (id, email, username, password_hash, tier, subscription_expires, stripe_customer_id, auth_provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.Username, u.PasswordHash, string(u.Tier), toNullTime(u.SubscriptionExpires), u.StripeCustomerID, u.AuthProvider, u.CreatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ht_users
		SET email = $2, username = $3, password_hash = $4, tier = $5, subscription_expires = $6, stripe_customer_id = $7, auth_provider = $8
		WHERE id = $1
	`, u.ID, u.Email, u.Username, u.PasswordHash, string(u.Tier), toNullTime(u.SubscriptionExpires), u.StripeCustomerID, u.AuthProvider)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserWhere(ctx, "id = $1", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUserWhere(ctx, "LOWER(email) = LOWER($1)", email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUserWhere(ctx, "username = $1", username)
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, tier, subscription_expires, stripe_customer_id, auth_provider, created_at
		FROM ht_users
		WHERE `+where, arg)

	var (
		u       user.User
		tier    string
		expires sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &tier, &expires, &u.StripeCustomerID, &u.AuthProvider, &u.CreatedAt); err != nil {
		return user.User{}, mapScanErr(err)
	}
	u.Tier = user.Tier(tier)
	u.SubscriptionExpires = fromNullTime(expires)
	return u, nil
}

// --- PlayerStore ------------------------------------------------------------

func (s *Store) CreatePlayer(ctx context.Context, p player.Player) (player.Player, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ht_players (id, user_id, team_id, name, number, position, photo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.UserID, p.TeamID, p.Name, p.Number, p.Position, p.Photo, p.CreatedAt)
	if err != nil {
		return player.Player{}, err
	}
	return p, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p player.Player) (player.Player, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ht_players
		SET team_id = $2, name = $3, number = $4, position = $5, photo = $6
		WHERE id = $1
	`, p.ID, p.TeamID, p.Name, p.Number, p.Position, p.Photo)
	if err != nil {
		return player.Player{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return player.Player{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (player.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, team_id, name, number, position, photo, created_at
		FROM ht_players
		WHERE id = $1
	`, id)

	var p player.Player
	if err := row.Scan(&p.ID, &p.UserID, &p.TeamID, &p.Name, &p.Number, &p.Position, &p.Photo, &p.CreatedAt); err != nil {
		return player.Player{}, mapScanErr(err)
	}
	return p, nil
}

func (s *Store) ListPlayers(ctx context.Context, userID, teamID string) ([]player.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, team_id, name, number, position, photo, created_at
		FROM ht_players
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR team_id = $2)
		ORDER BY created_at, id
	`, userID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []player.Player
	for rows.Next() {
		var p player.Player
		if err := rows.Scan(&p.ID, &p.UserID, &p.TeamID, &p.Name, &p.Number, &p.Position, &p.Photo, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, "ht_players", id)
}

// --- TeamStore --------------------------------------------------------------

func (s *Store) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ht_teams (id, user_id, name, logo, color_primary, color_secondary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.UserID, t.Name, t.Logo, t.ColorPrimary, t.ColorSecondary, t.CreatedAt)
	if err != nil {
		return team.Team{}, err
	}
	return t, nil
}

func (s *Store) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ht_teams
		SET name = $2, logo = $3, color_primary = $4, color_secondary = $5
		WHERE id = $1
	`, t.ID, t.Name, t.Logo, t.ColorPrimary, t.ColorSecondary)
	if err != nil {
		return team.Team{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return team.Team{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (team.Team, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, logo, color_primary, color_secondary, created_at
		FROM ht_teams
		WHERE id = $1
	`, id)

	var t team.Team
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Logo, &t.ColorPrimary, &t.ColorSecondary, &t.CreatedAt); err != nil {
		return team.Team{}, mapScanErr(err)
	}
	return t, nil
}

func (s *Store) ListTeams(ctx context.Context, userID string) ([]team.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, logo, color_primary, color_secondary, created_at
		FROM ht_teams
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []team.Team
	for rows.Next() {
		var t team.Team
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Logo, &t.ColorPrimary, &t.ColorSecondary, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, "ht_teams", id)
}

// --- GameStore --------------------------------------------------------------

func (s *Store) CreateGame(ctx context.Context, g game.Game) (game.Game, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.Revision = 1

	playersJSON, eventsJSON, mediaJSON, tagsJSON, err := marshalGameBlobs(g)
	if err != nil {
		return game.Game{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ht_games (id, user_id, team_id, home_team_name, opponent_name, game_date, location, game_type, venue, period_type,
			our_score, opponent_score, status, current_period, players, events, media, scoreboard_photo, notes, tags, ai_summary,
			revision, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`, g.ID, g.UserID, g.TeamID, g.HomeTeamName, g.OpponentName, g.GameDate, g.Location, g.GameType, g.Venue, g.PeriodType,
		g.OurScore, g.OpponentScore, g.Status, g.CurrentPeriod, playersJSON, eventsJSON, mediaJSON, g.ScoreboardPhoto, g.Notes, tagsJSON, g.AISummary,
		g.Revision, g.CreatedAt, toNullTime(g.CompletedAt))
	if err != nil {
		return game.Game{}, err
	}
	return g, nil
}

// UpdateGame compares the caller's revision against the stored row. A lost
// race returns storage.ErrConflict so the caller can reload and retry.
func (s *Store) UpdateGame(ctx context.Context, g game.Game) (game.Game, error) {
	playersJSON, eventsJSON, mediaJSON, tagsJSON, err := marshalGameBlobs(g)
	if err != nil {
		return game.Game{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE ht_games
		SET home_team_name = $3, opponent_name = $4, game_date = $5, location = $6, game_type = $7, venue = $8, period_type = $9,
			our_score = $10, opponent_score = $11, status = $12, current_period = $13, players = $14, events = $15, media = $16,
			scoreboard_photo = $17, notes = $18, tags = $19, ai_summary = $20, completed_at = $21, revision = revision + 1
		WHERE id = $1 AND revision = $2
	`, g.ID, g.Revision, g.HomeTeamName, g.OpponentName, g.GameDate, g.Location, g.GameType, g.Venue, g.PeriodType,
		g.OurScore, g.OpponentScore, g.Status, g.CurrentPeriod, playersJSON, eventsJSON, mediaJSON,
		g.ScoreboardPhoto, g.Notes, tagsJSON, g.AISummary, toNullTime(g.CompletedAt))
	if err != nil {
		return game.Game{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, getErr := s.GetGame(ctx, g.ID); errors.Is(getErr, storage.ErrNotFound) {
			return game.Game{}, storage.ErrNotFound
		}
		return game.Game{}, storage.ErrConflict
	}
	g.Revision++
	return g, nil
}

const gameColumns = `id, user_id, team_id, home_team_name, opponent_name, game_date, location, game_type, venue, period_type,
	our_score, opponent_score, status, current_period, players, events, media, scoreboard_photo, notes, tags, ai_summary,
	revision, created_at, completed_at`

func (s *Store) GetGame(ctx context.Context, id string) (game.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+`
		FROM ht_games
		WHERE id = $1
	`, id)

	g, err := scanGame(row)
	if err != nil {
		return game.Game{}, mapScanErr(err)
	}
	return g, nil
}

func (s *Store) ListGames(ctx context.Context, q storage.GameQuery) ([]game.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+gameColumns+`
		FROM ht_games
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR team_id = $2) AND ($3 = '' OR status = $3)
		ORDER BY game_date DESC, id
	`, q.UserID, q.TeamID, q.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []game.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		if q.PlayerID != "" && g.Line(q.PlayerID) == nil {
			continue
		}
		result = append(result, g)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, rows.Err()
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, "ht_games", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (game.Game, error) {
	var (
		g           game.Game
		playersRaw  []byte
		eventsRaw   []byte
		mediaRaw    []byte
		tagsRaw     []byte
		completedAt sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.TeamID, &g.HomeTeamName, &g.OpponentName, &g.GameDate, &g.Location, &g.GameType, &g.Venue, &g.PeriodType,
		&g.OurScore, &g.OpponentScore, &g.Status, &g.CurrentPeriod, &playersRaw, &eventsRaw, &mediaRaw, &g.ScoreboardPhoto, &g.Notes, &tagsRaw, &g.AISummary,
		&g.Revision, &g.CreatedAt, &completedAt); err != nil {
		return game.Game{}, err
	}
	if len(playersRaw) > 0 {
		_ = json.Unmarshal(playersRaw, &g.Players)
	}
	if len(eventsRaw) > 0 {
		_ = json.Unmarshal(eventsRaw, &g.Events)
	}
	if len(mediaRaw) > 0 {
		_ = json.Unmarshal(mediaRaw, &g.Media)
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &g.Tags)
	}
	g.CompletedAt = fromNullTime(completedAt)
	return g, nil
}

func marshalGameBlobs(g game.Game) (players, events, media, tags []byte, err error) {
	if players, err = json.Marshal(g.Players); err != nil {
		return nil, nil, nil, nil, err
	}
	if events, err = json.Marshal(g.Events); err != nil {
		return nil, nil, nil, nil, err
	}
	if media, err = json.Marshal(g.Media); err != nil {
		return nil, nil, nil, nil, err
	}
	if tags, err = json.Marshal(g.Tags); err != nil {
		return nil, nil, nil, nil, err
	}
	return players, events, media, tags, nil
}

// --- HighlightStore ---------------------------------------------------------

func (s *Store) CreateReel(ctx context.Context, r highlight.Reel) (highlight.Reel, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	gameIDsJSON, err := json.Marshal(r.GameIDs)
	if err != nil {
		return highlight.Reel{}, err
	}
	mediaIDsJSON, err := json.Marshal(r.MediaIDs)
	if err != nil {
		return highlight.Reel{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ht_highlight_reels (id, user_id, name, description, game_ids, media_ids, season, ai_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.UserID, r.Name, r.Description, gameIDsJSON, mediaIDsJSON, r.Season, r.AIDescription, r.CreatedAt)
	if err != nil {
		return highlight.Reel{}, err
	}
	return r, nil
}

func (s *Store) UpdateReel(ctx context.Context, r highlight.Reel) (highlight.Reel, error) {
	gameIDsJSON, err := json.Marshal(r.GameIDs)
	if err != nil {
		return highlight.Reel{}, err
	}
	mediaIDsJSON, err := json.Marshal(r.MediaIDs)
	if err != nil {
		return highlight.Reel{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE ht_highlight_reels
		SET name = $2, description = $3, game_ids = $4, media_ids = $5, season = $6, ai_description = $7
		WHERE id = $1
	`, r.ID, r.Name, r.Description, gameIDsJSON, mediaIDsJSON, r.Season, r.AIDescription)
	if err != nil {
		return highlight.Reel{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return highlight.Reel{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetReel(ctx context.Context, id string) (highlight.Reel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, game_ids, media_ids, season, ai_description, created_at
		FROM ht_highlight_reels
		WHERE id = $1
	`, id)

	r, err := scanReel(row)
	if err != nil {
		return highlight.Reel{}, mapScanErr(err)
	}
	return r, nil
}

func (s *Store) ListReels(ctx context.Context, userID string) ([]highlight.Reel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, game_ids, media_ids, season, ai_description, created_at
		FROM ht_highlight_reels
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []highlight.Reel
	for rows.Next() {
		r, err := scanReel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) DeleteReel(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, "ht_highlight_reels", id)
}

func scanReel(row rowScanner) (highlight.Reel, error) {
	var (
		r           highlight.Reel
		gameIDsRaw  []byte
		mediaIDsRaw []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &gameIDsRaw, &mediaIDsRaw, &r.Season, &r.AIDescription, &r.CreatedAt); err != nil {
		return highlight.Reel{}, err
	}
	if len(gameIDsRaw) > 0 {
		_ = json.Unmarshal(gameIDsRaw, &r.GameIDs)
	}
	if len(mediaIDsRaw) > 0 {
		_ = json.Unmarshal(mediaIDsRaw, &r.MediaIDs)
	}
	return r, nil
}

// --- helpers ----------------------------------------------------------------

func (s *Store) deleteWhere(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func mapScanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

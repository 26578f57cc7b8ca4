// Package game defines the game aggregate: per-player box scores, the shot
// chart, the stat event ledger, and attached media.
package game

import "time"

// Status values for a game's lifecycle.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Period type values.
const (
	PeriodQuarters = "quarters"
	PeriodHalves   = "halves"
)

// StatKind identifies a live stat event. The set is closed; anything else is
// rejected before any counter is touched.
type StatKind string

const (
	StatMade2       StatKind = "made_2"
	StatMissed2     StatKind = "missed_2"
	StatMade3       StatKind = "made_3"
	StatMissed3     StatKind = "missed_3"
	StatMadeFT      StatKind = "made_ft"
	StatMissedFT    StatKind = "missed_ft"
	StatReboundOff  StatKind = "rebound_off"
	StatReboundDef  StatKind = "rebound_def"
	StatReboundTot  StatKind = "rebound_total"
	StatAssist      StatKind = "assist"
	StatSteal       StatKind = "steal"
	StatBlock       StatKind = "block"
	StatTurnover    StatKind = "turnover"
	StatFoul        StatKind = "foul"
	StatPlusMinus   StatKind = "plus_minus"
	StatMinutes     StatKind = "minutes"
)

// ShotKind distinguishes two- and three-point attempts on the shot chart.
type ShotKind string

const (
	Shot2pt ShotKind = "2pt"
	Shot3pt ShotKind = "3pt"
)

// BoxScore holds the per-player counters for one game. All counters are
// clamped at zero except PlusMinus, which is legitimately signed.
type BoxScore struct {
	Points            int `json:"points"`
	Rebounds          int `json:"rebounds"`
	OffensiveRebounds int `json:"offensive_rebounds"`
	DefensiveRebounds int `json:"defensive_rebounds"`
	Assists           int `json:"assists"`
	Steals            int `json:"steals"`
	Blocks            int `json:"blocks"`
	Turnovers         int `json:"turnovers"`
	Fouls             int `json:"fouls"`
	FGMade            int `json:"fg_made"`
	FGAttempted       int `json:"fg_attempted"`
	ThreePtMade       int `json:"three_pt_made"`
	ThreePtAttempted  int `json:"three_pt_attempted"`
	FTMade            int `json:"ft_made"`
	FTAttempted       int `json:"ft_attempted"`
	PlusMinus         int `json:"plus_minus"`
	SecondsPlayed     int `json:"minutes_played"`
}

// IsZero reports whether every counter is zero.
func (b BoxScore) IsZero() bool {
	return b == BoxScore{}
}

// ShotAttempt is a charted shot. Coordinates are percentages of court width
// and length in [0, 100].
type ShotAttempt struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Made      bool      `json:"made"`
	Kind      ShotKind  `json:"shot_type"`
	Period    int       `json:"period"`
	CreatedAt time.Time `json:"timestamp"`
}

// StatEvent is one ledger entry. Value holds the signed delta that was
// applied; ShotID references the shot the event created, if any.
type StatEvent struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Kind      StatKind  `json:"stat_type"`
	Value     int       `json:"value"`
	Period    int       `json:"period"`
	ShotID    string    `json:"shot_id,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// PlayerLine pairs a roster player with their box score and shot chart.
type PlayerLine struct {
	PlayerID   string        `json:"player_id"`
	PlayerName string        `json:"player_name"`
	Stats      BoxScore      `json:"stats"`
	Shots      []ShotAttempt `json:"shots"`
}

// Media is a photo or video attached to a game, stored base64-encoded.
type Media struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Data        string    `json:"data"`
	Description string    `json:"description,omitempty"`
	IsHighlight bool      `json:"is_highlight"`
	Period      int       `json:"period,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Game is the aggregate root. Players preserves roster order, Events
// preserves chronological order, and OurScore always equals the sum of
// player points. Revision backs the store's optimistic concurrency check.
type Game struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	TeamID          string       `json:"team_id,omitempty"`
	HomeTeamName    string       `json:"home_team_name"`
	OpponentName    string       `json:"opponent_name"`
	GameDate        time.Time    `json:"game_date"`
	Location        string       `json:"location,omitempty"`
	GameType        string       `json:"game_type,omitempty"`
	Venue           string       `json:"venue,omitempty"`
	PeriodType      string       `json:"period_type"`
	OurScore        int          `json:"our_score"`
	OpponentScore   int          `json:"opponent_score"`
	Status          string       `json:"status"`
	CurrentPeriod   int          `json:"current_period"`
	Players         []PlayerLine `json:"player_stats"`
	Events          []StatEvent  `json:"stat_history"`
	Media           []Media      `json:"media"`
	ScoreboardPhoto string       `json:"scoreboard_photo,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Tags            []string     `json:"tags"`
	AISummary       string       `json:"ai_summary,omitempty"`
	Revision        int64        `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// Line returns the player line for the given roster player, or nil when the
// player is not in the game.
func (g *Game) Line(playerID string) *PlayerLine {
	for i := range g.Players {
		if g.Players[i].PlayerID == playerID {
			return &g.Players[i]
		}
	}
	return nil
}

// TotalPoints sums points across all player lines.
func (g *Game) TotalPoints() int {
	total := 0
	for i := range g.Players {
		total += g.Players[i].Stats.Points
	}
	return total
}

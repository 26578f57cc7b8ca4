// Package ledger implements the live stat engine: it turns discrete stat
// events into running box-score totals, keeps an event log precise enough to
// reverse any entry, and reconciles the team score from box-score state.
//
// Every function here is pure computation over a Game value. Persistence,
// authentication, and tier checks are the caller's concern.
package ledger

import (
	"errors"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/game"
)

var (
	// ErrPlayerNotInGame is returned when the target player is not on the
	// game's roster.
	ErrPlayerNotInGame = errors.New("player not in this game")
	// ErrNothingToUndo is returned when the event log is empty.
	ErrNothingToUndo = errors.New("no stats to undo")
	// ErrInvalidIndex is returned when an undo index is out of bounds.
	ErrInvalidIndex = errors.New("stat index out of range")
	// ErrShotNotFound is returned when a shot index is out of bounds.
	ErrShotNotFound = errors.New("shot not found")
	// ErrInvalidStatKind is returned for a stat kind outside the closed set.
	ErrInvalidStatKind = errors.New("invalid stat kind")
)

// ShotLocation is a charted court position, as percentages of court width and
// length.
type ShotLocation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AdjustKind identifies a counter reachable through manual adjustment.
type AdjustKind string

const (
	AdjustPoints      AdjustKind = "points"
	AdjustFGMade      AdjustKind = "fg_made"
	AdjustThreePtMade AdjustKind = "three_pt_made"
	AdjustFTMade      AdjustKind = "ft_made"
	AdjustRebounds    AdjustKind = "rebounds"
	AdjustReboundOff  AdjustKind = "rebound_off"
	AdjustReboundDef  AdjustKind = "rebound_def"
	AdjustAssists     AdjustKind = "assists"
	AdjustSteals      AdjustKind = "steals"
	AdjustBlocks      AdjustKind = "blocks"
	AdjustTurnovers   AdjustKind = "turnovers"
	AdjustFouls       AdjustKind = "fouls"
)

// Apply records one stat event for a roster player, appends it to the event
// log, and recomputes the team score. For shot kinds a non-nil location adds
// a shot-chart entry referenced by the logged event. Validation happens
// before any counter is touched; on error the game is unchanged.
//
// plus_minus mutates its counter but is not logged: it is the one signed
// counter and has no meaningful single-event inverse.
func Apply(g *game.Game, playerID string, kind game.StatKind, value int, loc *ShotLocation, now time.Time, newID func() string) error {
	if !validKind(kind) {
		return ErrInvalidStatKind
	}
	line := g.Line(playerID)
	if line == nil {
		return ErrPlayerNotInGame
	}

	delta := value
	if isShotKind(kind) || kind == game.StatMadeFT || kind == game.StatMissedFT {
		delta = 1
	}

	applyDelta(&line.Stats, kind, delta, +1)

	var shotID string
	if loc != nil && isShotKind(kind) {
		shot := game.ShotAttempt{
			ID:        newID(),
			X:         clampCoord(loc.X),
			Y:         clampCoord(loc.Y),
			Made:      kind == game.StatMade2 || kind == game.StatMade3,
			Kind:      shotKind(kind),
			Period:    g.CurrentPeriod,
			CreatedAt: now,
		}
		line.Shots = append(line.Shots, shot)
		shotID = shot.ID
	}

	if kind != game.StatPlusMinus {
		g.Events = append(g.Events, game.StatEvent{
			ID:        newID(),
			PlayerID:  playerID,
			Kind:      kind,
			Value:     delta,
			Period:    g.CurrentPeriod,
			ShotID:    shotID,
			CreatedAt: now,
		})
	}

	g.OurScore = g.TotalPoints()
	return nil
}

// Adjust applies a manual correction directly to a player's counters,
// bypassing the event log. Composite kinds move the paired attempted counter
// and points with the stat's point value. Each counter floors at zero
// independently.
func Adjust(g *game.Game, playerID string, kind AdjustKind, delta int) error {
	line := g.Line(playerID)
	if line == nil {
		return ErrPlayerNotInGame
	}
	box := &line.Stats

	switch kind {
	case AdjustPoints:
		box.Points = floor(box.Points + delta)
	case AdjustFGMade:
		box.FGMade = floor(box.FGMade + delta)
		if delta > 0 {
			box.FGAttempted += delta
			box.Points += 2 * delta
		} else {
			box.FGAttempted = floor(box.FGAttempted + delta)
			box.Points = floor(box.Points + 2*delta)
		}
	case AdjustThreePtMade:
		box.ThreePtMade = floor(box.ThreePtMade + delta)
		box.FGMade = floor(box.FGMade + delta)
		if delta > 0 {
			box.ThreePtAttempted += delta
			box.FGAttempted += delta
			box.Points += 3 * delta
		} else {
			box.ThreePtAttempted = floor(box.ThreePtAttempted + delta)
			box.FGAttempted = floor(box.FGAttempted + delta)
			box.Points = floor(box.Points + 3*delta)
		}
	case AdjustFTMade:
		box.FTMade = floor(box.FTMade + delta)
		if delta > 0 {
			box.FTAttempted += delta
			box.Points += delta
		} else {
			box.FTAttempted = floor(box.FTAttempted + delta)
			box.Points = floor(box.Points + delta)
		}
	case AdjustRebounds:
		box.Rebounds = floor(box.Rebounds + delta)
	case AdjustReboundOff:
		box.OffensiveRebounds = floor(box.OffensiveRebounds + delta)
		box.Rebounds = floor(box.Rebounds + delta)
	case AdjustReboundDef:
		box.DefensiveRebounds = floor(box.DefensiveRebounds + delta)
		box.Rebounds = floor(box.Rebounds + delta)
	case AdjustAssists:
		box.Assists = floor(box.Assists + delta)
	case AdjustSteals:
		box.Steals = floor(box.Steals + delta)
	case AdjustBlocks:
		box.Blocks = floor(box.Blocks + delta)
	case AdjustTurnovers:
		box.Turnovers = floor(box.Turnovers + delta)
	case AdjustFouls:
		box.Fouls = floor(box.Fouls + delta)
	default:
		return ErrInvalidStatKind
	}

	g.OurScore = g.TotalPoints()
	return nil
}

// UndoLast reverses the most recent logged event.
func UndoLast(g *game.Game) error {
	if len(g.Events) == 0 {
		return ErrNothingToUndo
	}
	return undoAt(g, len(g.Events)-1)
}

// UndoAt reverses one logged event addressed by its most-recent-first display
// index, leaving the rest of the log intact. Each entry stores an absolute
// delta, so reversal is valid regardless of position.
func UndoAt(g *game.Game, displayIndex int) error {
	if displayIndex < 0 || displayIndex >= len(g.Events) {
		return ErrInvalidIndex
	}
	return undoAt(g, len(g.Events)-1-displayIndex)
}

func undoAt(g *game.Game, idx int) error {
	ev := g.Events[idx]
	line := g.Line(ev.PlayerID)
	if line == nil {
		return ErrPlayerNotInGame
	}

	applyDelta(&line.Stats, ev.Kind, ev.Value, -1)
	if ev.ShotID != "" {
		removeShot(line, ev.ShotID)
	}

	g.Events = append(g.Events[:idx], g.Events[idx+1:]...)
	g.OurScore = g.TotalPoints()
	return nil
}

// DeleteShot removes a charted shot and reverses the counters it implied,
// driven by the shot record itself. The logged event that created the shot,
// if still present, is removed so a later undo cannot subtract it twice.
func DeleteShot(g *game.Game, playerID string, shotIndex int) error {
	line := g.Line(playerID)
	if line == nil {
		return ErrPlayerNotInGame
	}
	if shotIndex < 0 || shotIndex >= len(line.Shots) {
		return ErrShotNotFound
	}

	shot := line.Shots[shotIndex]
	box := &line.Stats
	switch shot.Kind {
	case game.Shot2pt:
		box.FGAttempted = floor(box.FGAttempted - 1)
		if shot.Made {
			box.FGMade = floor(box.FGMade - 1)
			box.Points = floor(box.Points - 2)
		}
	case game.Shot3pt:
		box.ThreePtAttempted = floor(box.ThreePtAttempted - 1)
		box.FGAttempted = floor(box.FGAttempted - 1)
		if shot.Made {
			box.ThreePtMade = floor(box.ThreePtMade - 1)
			box.FGMade = floor(box.FGMade - 1)
			box.Points = floor(box.Points - 3)
		}
	}

	line.Shots = append(line.Shots[:shotIndex], line.Shots[shotIndex+1:]...)
	for i := range g.Events {
		if g.Events[i].ShotID == shot.ID {
			g.Events = append(g.Events[:i], g.Events[i+1:]...)
			break
		}
	}

	g.OurScore = g.TotalPoints()
	return nil
}

// MoveShot updates a shot's chart coordinates. No counters change.
func MoveShot(g *game.Game, playerID string, shotIndex int, x, y float64) error {
	line := g.Line(playerID)
	if line == nil {
		return ErrPlayerNotInGame
	}
	if shotIndex < 0 || shotIndex >= len(line.Shots) {
		return ErrShotNotFound
	}
	line.Shots[shotIndex].X = clampCoord(x)
	line.Shots[shotIndex].Y = clampCoord(y)
	return nil
}

// applyDelta mutates one box score by the given kind. sign is +1 for forward
// application and -1 for reversal; all counters except PlusMinus floor at
// zero in both directions.
func applyDelta(box *game.BoxScore, kind game.StatKind, value, sign int) {
	d := value * sign
	switch kind {
	case game.StatMade2:
		box.Points = floor(box.Points + 2*d)
		box.FGMade = floor(box.FGMade + d)
		box.FGAttempted = floor(box.FGAttempted + d)
	case game.StatMissed2:
		box.FGAttempted = floor(box.FGAttempted + d)
	case game.StatMade3:
		// A made three also counts as a made field goal.
		box.Points = floor(box.Points + 3*d)
		box.ThreePtMade = floor(box.ThreePtMade + d)
		box.ThreePtAttempted = floor(box.ThreePtAttempted + d)
		box.FGMade = floor(box.FGMade + d)
		box.FGAttempted = floor(box.FGAttempted + d)
	case game.StatMissed3:
		box.ThreePtAttempted = floor(box.ThreePtAttempted + d)
		box.FGAttempted = floor(box.FGAttempted + d)
	case game.StatMadeFT:
		box.Points = floor(box.Points + d)
		box.FTMade = floor(box.FTMade + d)
		box.FTAttempted = floor(box.FTAttempted + d)
	case game.StatMissedFT:
		box.FTAttempted = floor(box.FTAttempted + d)
	case game.StatReboundOff:
		box.OffensiveRebounds = floor(box.OffensiveRebounds + d)
		box.Rebounds = floor(box.Rebounds + d)
	case game.StatReboundDef:
		box.DefensiveRebounds = floor(box.DefensiveRebounds + d)
		box.Rebounds = floor(box.Rebounds + d)
	case game.StatReboundTot:
		box.Rebounds = floor(box.Rebounds + d)
	case game.StatAssist:
		box.Assists = floor(box.Assists + d)
	case game.StatSteal:
		box.Steals = floor(box.Steals + d)
	case game.StatBlock:
		box.Blocks = floor(box.Blocks + d)
	case game.StatTurnover:
		box.Turnovers = floor(box.Turnovers + d)
	case game.StatFoul:
		box.Fouls = floor(box.Fouls + d)
	case game.StatPlusMinus:
		box.PlusMinus += d
	case game.StatMinutes:
		box.SecondsPlayed = floor(box.SecondsPlayed + d)
	}
}

func validKind(kind game.StatKind) bool {
	switch kind {
	case game.StatMade2, game.StatMissed2, game.StatMade3, game.StatMissed3,
		game.StatMadeFT, game.StatMissedFT,
		game.StatReboundOff, game.StatReboundDef, game.StatReboundTot,
		game.StatAssist, game.StatSteal, game.StatBlock, game.StatTurnover,
		game.StatFoul, game.StatPlusMinus, game.StatMinutes:
		return true
	}
	return false
}

func isShotKind(kind game.StatKind) bool {
	switch kind {
	case game.StatMade2, game.StatMissed2, game.StatMade3, game.StatMissed3:
		return true
	}
	return false
}

func shotKind(kind game.StatKind) game.ShotKind {
	if kind == game.StatMade3 || kind == game.StatMissed3 {
		return game.Shot3pt
	}
	return game.Shot2pt
}

func removeShot(line *game.PlayerLine, shotID string) {
	for i := range line.Shots {
		if line.Shots[i].ID == shotID {
			line.Shots = append(line.Shots[:i], line.Shots[i+1:]...)
			return
		}
	}
}

func floor(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampCoord(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

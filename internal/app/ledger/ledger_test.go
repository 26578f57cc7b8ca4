package ledger

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/hooptrack/backend/internal/app/domain/game"
)

func newTestGame(playerIDs ...string) *game.Game {
	g := &game.Game{
		ID:            "g1",
		Status:        game.StatusInProgress,
		CurrentPeriod: 1,
		PeriodType:    game.PeriodQuarters,
	}
	for _, id := range playerIDs {
		g.Players = append(g.Players, game.PlayerLine{PlayerID: id, PlayerName: "Player " + id})
	}
	return g
}

func idGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func checkInvariants(t *testing.T, g *game.Game) {
	t.Helper()
	if g.OurScore != g.TotalPoints() {
		t.Fatalf("team score %d != sum of player points %d", g.OurScore, g.TotalPoints())
	}
	for _, line := range g.Players {
		b := line.Stats
		if b.FGAttempted < b.FGMade {
			t.Fatalf("player %s: fg_attempted %d < fg_made %d", line.PlayerID, b.FGAttempted, b.FGMade)
		}
		if b.ThreePtAttempted < b.ThreePtMade {
			t.Fatalf("player %s: three_pt_attempted %d < three_pt_made %d", line.PlayerID, b.ThreePtAttempted, b.ThreePtMade)
		}
		if b.FGMade < b.ThreePtMade {
			t.Fatalf("player %s: fg_made %d < three_pt_made %d", line.PlayerID, b.FGMade, b.ThreePtMade)
		}
		for name, v := range map[string]int{
			"points": b.Points, "rebounds": b.Rebounds,
			"offensive_rebounds": b.OffensiveRebounds, "defensive_rebounds": b.DefensiveRebounds,
			"assists": b.Assists, "steals": b.Steals, "blocks": b.Blocks,
			"turnovers": b.Turnovers, "fouls": b.Fouls,
			"fg_made": b.FGMade, "fg_attempted": b.FGAttempted,
			"three_pt_made": b.ThreePtMade, "three_pt_attempted": b.ThreePtAttempted,
			"ft_made": b.FTMade, "ft_attempted": b.FTAttempted,
			"minutes_played": b.SecondsPlayed,
		} {
			if v < 0 {
				t.Fatalf("player %s: %s went negative (%d)", line.PlayerID, name, v)
			}
		}
	}
}

func TestApplyMadeThreeRecordsShot(t *testing.T) {
	g := newTestGame("p1", "p2")
	now := time.Date(2025, 11, 2, 19, 0, 0, 0, time.UTC)

	err := Apply(g, "p1", game.StatMade3, 1, &ShotLocation{X: 30, Y: 70}, now, idGen())
	if err != nil {
		t.Fatalf("apply made_3: %v", err)
	}

	line := g.Line("p1")
	b := line.Stats
	if b.Points != 3 || b.ThreePtMade != 1 || b.ThreePtAttempted != 1 || b.FGMade != 1 || b.FGAttempted != 1 {
		t.Fatalf("unexpected box score after made_3: %+v", b)
	}
	if len(line.Shots) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(line.Shots))
	}
	shot := line.Shots[0]
	if !shot.Made || shot.Kind != game.Shot3pt || shot.X != 30 || shot.Y != 70 || shot.Period != 1 {
		t.Fatalf("unexpected shot record: %+v", shot)
	}
	if g.OurScore != 3 {
		t.Fatalf("team score = %d, want 3", g.OurScore)
	}
	if len(g.Events) != 1 || g.Events[0].ShotID != shot.ID {
		t.Fatalf("event log should reference the shot: %+v", g.Events)
	}
	checkInvariants(t, g)
}

func TestUndoLastRestoresInitialState(t *testing.T) {
	g := newTestGame("p1", "p2")
	now := time.Now().UTC()

	if err := Apply(g, "p1", game.StatMade3, 1, &ShotLocation{X: 30, Y: 70}, now, idGen()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := UndoLast(g); err != nil {
		t.Fatalf("undo: %v", err)
	}

	line := g.Line("p1")
	if !line.Stats.IsZero() {
		t.Fatalf("box score not restored: %+v", line.Stats)
	}
	if len(line.Shots) != 0 {
		t.Fatalf("shot list should be empty, got %d", len(line.Shots))
	}
	if g.OurScore != 0 {
		t.Fatalf("team score = %d, want 0", g.OurScore)
	}
	if len(g.Events) != 0 {
		t.Fatalf("event log should be empty, got %d", len(g.Events))
	}
}

func TestReboundSubCountersStayInSync(t *testing.T) {
	g := newTestGame("p1")
	now := time.Now().UTC()
	ids := idGen()

	if err := Apply(g, "p1", game.StatReboundOff, 1, nil, now, ids); err != nil {
		t.Fatalf("apply rebound_off: %v", err)
	}
	if err := Apply(g, "p1", game.StatReboundDef, 2, nil, now, ids); err != nil {
		t.Fatalf("apply rebound_def: %v", err)
	}

	b := g.Line("p1").Stats
	if b.OffensiveRebounds != 1 || b.DefensiveRebounds != 2 || b.Rebounds != 3 {
		t.Fatalf("rebound counters out of sync: %+v", b)
	}

	if err := UndoLast(g); err != nil {
		t.Fatalf("undo: %v", err)
	}
	b = g.Line("p1").Stats
	if b.OffensiveRebounds != 1 || b.DefensiveRebounds != 0 || b.Rebounds != 1 {
		t.Fatalf("rebound undo not atomic: %+v", b)
	}
}

func TestAdjustFieldGoalClampsPerField(t *testing.T) {
	g := newTestGame("p1")
	line := g.Line("p1")
	line.Stats.FGMade = 1
	line.Stats.FGAttempted = 1
	line.Stats.Points = 2
	g.OurScore = 2

	if err := Adjust(g, "p1", AdjustFGMade, -5); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	b := g.Line("p1").Stats
	if b.FGMade != 0 || b.FGAttempted != 0 || b.Points != 0 {
		t.Fatalf("clamp-per-field mismatch: %+v", b)
	}
	if g.OurScore != 0 {
		t.Fatalf("team score = %d, want 0", g.OurScore)
	}
}

func TestAdjustThreePointerMovesFieldGoalPair(t *testing.T) {
	g := newTestGame("p1")

	if err := Adjust(g, "p1", AdjustThreePtMade, 2); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	b := g.Line("p1").Stats
	if b.ThreePtMade != 2 || b.ThreePtAttempted != 2 || b.FGMade != 2 || b.FGAttempted != 2 || b.Points != 6 {
		t.Fatalf("three-point adjust pairing mismatch: %+v", b)
	}
	if g.OurScore != 6 {
		t.Fatalf("team score = %d, want 6", g.OurScore)
	}
}

func TestAdjustLeavesNoLedgerEntry(t *testing.T) {
	g := newTestGame("p1")
	if err := Adjust(g, "p1", AdjustAssists, 3); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if len(g.Events) != 0 {
		t.Fatalf("adjust must bypass the event log, got %d entries", len(g.Events))
	}
	if err := UndoLast(g); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestDeleteShotReversesCounters(t *testing.T) {
	g := newTestGame("p1")
	now := time.Now().UTC()

	if err := Apply(g, "p1", game.StatMade2, 1, &ShotLocation{X: 40, Y: 20}, now, idGen()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := DeleteShot(g, "p1", 0); err != nil {
		t.Fatalf("delete shot: %v", err)
	}

	line := g.Line("p1")
	b := line.Stats
	if b.FGMade != 0 || b.FGAttempted != 0 || b.Points != 0 {
		t.Fatalf("counters not reversed: %+v", b)
	}
	if len(line.Shots) != 0 {
		t.Fatalf("shot not removed")
	}
	if len(g.Events) != 0 {
		t.Fatalf("originating event should be dropped with the shot")
	}
	if g.OurScore != 0 {
		t.Fatalf("team score = %d, want 0", g.OurScore)
	}
}

func TestDeleteShotOutOfRange(t *testing.T) {
	g := newTestGame("p1")
	if err := DeleteShot(g, "p1", 0); !errors.Is(err, ErrShotNotFound) {
		t.Fatalf("expected ErrShotNotFound, got %v", err)
	}
}

func TestMoveShotOnlyChangesCoordinates(t *testing.T) {
	g := newTestGame("p1")
	now := time.Now().UTC()
	if err := Apply(g, "p1", game.StatMissed3, 1, &ShotLocation{X: 10, Y: 90}, now, idGen()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before := g.Line("p1").Stats

	if err := MoveShot(g, "p1", 0, 55, 120); err != nil {
		t.Fatalf("move shot: %v", err)
	}
	shot := g.Line("p1").Shots[0]
	if shot.X != 55 || shot.Y != 100 {
		t.Fatalf("coordinates not updated/clamped: %+v", shot)
	}
	if g.Line("p1").Stats != before {
		t.Fatalf("move shot must not touch counters")
	}

	if err := MoveShot(g, "p1", 5, 1, 1); !errors.Is(err, ErrShotNotFound) {
		t.Fatalf("expected ErrShotNotFound, got %v", err)
	}
}

func TestApplyValidation(t *testing.T) {
	g := newTestGame("p1")
	now := time.Now().UTC()

	if err := Apply(g, "ghost", game.StatAssist, 1, nil, now, idGen()); !errors.Is(err, ErrPlayerNotInGame) {
		t.Fatalf("expected ErrPlayerNotInGame, got %v", err)
	}
	if err := Apply(g, "p1", game.StatKind("dunks"), 1, nil, now, idGen()); !errors.Is(err, ErrInvalidStatKind) {
		t.Fatalf("expected ErrInvalidStatKind, got %v", err)
	}
	if !g.Line("p1").Stats.IsZero() || len(g.Events) != 0 {
		t.Fatalf("failed apply must not mutate the game")
	}
}

func TestPlusMinusIsSignedAndUnlogged(t *testing.T) {
	g := newTestGame("p1")
	now := time.Now().UTC()
	ids := idGen()

	if err := Apply(g, "p1", game.StatPlusMinus, -4, nil, now, ids); err != nil {
		t.Fatalf("apply plus_minus: %v", err)
	}
	if got := g.Line("p1").Stats.PlusMinus; got != -4 {
		t.Fatalf("plus_minus = %d, want -4", got)
	}
	if len(g.Events) != 0 {
		t.Fatalf("plus_minus must not be logged")
	}
}

func TestUndoAtDisplayOrder(t *testing.T) {
	g := newTestGame("p1", "p2")
	now := time.Now().UTC()
	ids := idGen()

	// p1 assist, p2 steal, p1 made_2 (most recent).
	if err := Apply(g, "p1", game.StatAssist, 1, nil, now, ids); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Apply(g, "p2", game.StatSteal, 1, nil, now, ids); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Apply(g, "p1", game.StatMade2, 1, nil, now, ids); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Display index 1 is the steal, counting back from the most recent.
	if err := UndoAt(g, 1); err != nil {
		t.Fatalf("undo at: %v", err)
	}
	if got := g.Line("p2").Stats.Steals; got != 0 {
		t.Fatalf("steal not reversed, steals = %d", got)
	}
	if got := g.Line("p1").Stats.Points; got != 2 {
		t.Fatalf("unrelated entries must survive, points = %d", got)
	}
	if len(g.Events) != 2 {
		t.Fatalf("expected 2 remaining events, got %d", len(g.Events))
	}

	if err := UndoAt(g, 2); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	if err := UndoAt(g, -1); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestUndoEmptyLedger(t *testing.T) {
	g := newTestGame("p1")
	if err := UndoLast(g); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

// TestRoundTripRandomSequence drives a seeded random mix of loggable events
// through the engine, verifies the invariants after every operation, then
// undoes everything and expects the initial all-zero state back.
func TestRoundTripRandomSequence(t *testing.T) {
	kinds := []game.StatKind{
		game.StatMade2, game.StatMissed2, game.StatMade3, game.StatMissed3,
		game.StatMadeFT, game.StatMissedFT,
		game.StatReboundOff, game.StatReboundDef, game.StatReboundTot,
		game.StatAssist, game.StatSteal, game.StatBlock,
		game.StatTurnover, game.StatFoul, game.StatMinutes,
	}
	players := []string{"p1", "p2", "p3"}

	rng := rand.New(rand.NewSource(7))
	g := newTestGame(players...)
	now := time.Now().UTC()
	ids := idGen()

	const n = 250
	for i := 0; i < n; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		pid := players[rng.Intn(len(players))]
		value := 1 + rng.Intn(3)
		var loc *ShotLocation
		if isShotKind(kind) && rng.Intn(2) == 0 {
			loc = &ShotLocation{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		}
		if err := Apply(g, pid, kind, value, loc, now, ids); err != nil {
			t.Fatalf("apply %s for %s: %v", kind, pid, err)
		}
		checkInvariants(t, g)
	}
	if len(g.Events) != n {
		t.Fatalf("expected %d ledger entries, got %d", n, len(g.Events))
	}

	for i := 0; i < n; i++ {
		if err := UndoLast(g); err != nil {
			t.Fatalf("undo %d: %v", i, err)
		}
		checkInvariants(t, g)
	}

	for _, line := range g.Players {
		if !line.Stats.IsZero() {
			t.Fatalf("player %s not restored to zero: %+v", line.PlayerID, line.Stats)
		}
		if len(line.Shots) != 0 {
			t.Fatalf("player %s has %d leftover shots", line.PlayerID, len(line.Shots))
		}
	}
	if g.OurScore != 0 || len(g.Events) != 0 {
		t.Fatalf("game not fully restored: score=%d events=%d", g.OurScore, len(g.Events))
	}
}

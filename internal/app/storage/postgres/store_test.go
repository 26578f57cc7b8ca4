package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/internal/platform/migrations"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	u, err := store.CreateUser(ctx, user.User{Email: "coach@example.com", Username: "coach", PasswordHash: "x", Tier: user.TierFree, AuthProvider: "email"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	p, err := store.CreatePlayer(ctx, player.Player{UserID: u.ID, Name: "Jordan Miles", Number: 23})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	g, err := store.CreateGame(ctx, game.Game{
		UserID:       u.ID,
		HomeTeamName: "Hawks",
		OpponentName: "Eagles",
		GameDate:     time.Now().UTC(),
		PeriodType:   game.PeriodQuarters,
		Status:       game.StatusInProgress,
		Players:      []game.PlayerLine{{PlayerID: p.ID, PlayerName: p.Name}},
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if g.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", g.Revision)
	}

	g.OurScore = 2
	g.Players[0].Stats.Points = 2
	updated, err := store.UpdateGame(ctx, g)
	if err != nil {
		t.Fatalf("update game: %v", err)
	}
	if updated.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", updated.Revision)
	}

	// The copy still holding revision 1 must lose the race.
	if _, err := store.UpdateGame(ctx, g); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected revision conflict, got %v", err)
	}

	got, err := store.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.Players[0].Stats.Points != 2 {
		t.Fatalf("expected embedded box score to persist, got %+v", got.Players[0].Stats)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

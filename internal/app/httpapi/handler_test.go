package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/hooptrack/backend/internal/app"
	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage/memory"
	"github.com/hooptrack/backend/internal/config"
	"github.com/hooptrack/backend/internal/middleware"
)

type testServer struct {
	handler http.Handler
	app     *app.Application
	store   *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Billing.AllowTestUpgrade = true

	store := memory.New()
	application, err := app.New(cfg, app.Stores{
		Users: store, Players: store, Teams: store, Games: store, Highlights: store,
	}, app.Options{}, nil)
	if err != nil {
		t.Fatalf("build application: %v", err)
	}

	authn := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, nil, []string{
		"/auth/register", "/auth/login", "/auth/google",
		"/subscriptions/webhook", "/health", "/metrics",
	}, nil)

	return &testServer{
		handler: authn.Handler(NewHandler(application, nil)),
		app:     application,
		store:   store,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "coach@example.com", "username": "coach", "password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.Token
}

func (s *testServer) createPlayer(t *testing.T, token, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/players", token, map[string]any{"name": name, "number": 23})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create player: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var p struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	return p.ID
}

func (s *testServer) createGame(t *testing.T, token string, playerIDs ...string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/games", token, map[string]any{
		"opponent_name": "Eagles",
		"player_ids":    playerIDs,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var g struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	return g.ID
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)

	rec := s.do(t, http.MethodGet, "/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var u user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.Email != "coach@example.com" || u.Tier != user.TierFree {
		t.Fatalf("unexpected user %+v", u)
	}

	if rec := s.do(t, http.MethodGet, "/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "coach@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "coach@example.com", "username": "coach2", "password": "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
}

func TestRecordStatAndUndoOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
		"player_id": playerID, "stat_type": "made_3", "x": 80.0, "y": 30.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("record stat: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var g game.Game
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	if g.OurScore != 3 || len(g.Events) != 1 {
		t.Fatalf("expected score 3 and one event, got score=%d events=%d", g.OurScore, len(g.Events))
	}
	if line := g.Line(playerID); line == nil || len(line.Shots) != 1 {
		t.Fatalf("expected one charted shot")
	}

	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/undo", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	if g.OurScore != 0 || len(g.Events) != 0 {
		t.Fatalf("expected clean state after undo")
	}

	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/undo", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 undoing an empty ledger, got %d", rec.Code)
	}
}

func TestRecordStatValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
		"player_id": playerID, "stat_type": "dunk",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stat type, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
		"player_id": "missing", "stat_type": "made_2",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for player outside the game, got %d", rec.Code)
	}
}

func TestAdjustClampsAtZero(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPost, "/games/"+gameID+"/adjust", token, map[string]any{
		"player_id": playerID, "stat_type": "rebounds", "delta": -5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var g game.Game
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	if g.Line(playerID).Stats.Rebounds != 0 {
		t.Fatalf("expected rebounds clamped at zero")
	}
}

func TestShotMoveAndDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
		"player_id": playerID, "stat_type": "made_2", "x": 40.0, "y": 50.0,
	})

	rec := s.do(t, http.MethodPut, fmt.Sprintf("/games/%s/shots/%s/0", gameID, playerID), token, map[string]any{
		"x": 60.0, "y": 120.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("move shot: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var g game.Game
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	shot := g.Line(playerID).Shots[0]
	if shot.X != 60 || shot.Y != 100 {
		t.Fatalf("expected clamped move, got (%v, %v)", shot.X, shot.Y)
	}
	if g.OurScore != 2 {
		t.Fatalf("move must not change the score")
	}

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/games/%s/shots/%s/0", gameID, playerID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete shot: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &g)
	if g.OurScore != 0 || len(g.Line(playerID).Shots) != 0 || len(g.Events) != 0 {
		t.Fatalf("expected shot, stats, and ledger entry removed")
	}

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/games/%s/shots/%s/5", gameID, playerID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing shot, got %d", rec.Code)
	}
}

func TestCompletedGameConflict(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPut, "/games/"+gameID, token, map[string]any{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
		"player_id": playerID, "stat_type": "made_2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for live entry on completed game, got %d", rec.Code)
	}

	// Adjustments stay available as the correction path.
	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/adjust", token, map[string]any{
		"player_id": playerID, "stat_type": "points", "delta": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected adjust to work on completed game, got %d", rec.Code)
	}
}

func TestTeamTierGate(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)

	rec := s.do(t, http.MethodPost, "/teams", token, map[string]any{"name": "Hawks"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for free user creating a team, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/subscriptions/upgrade", token, map[string]string{"tier": "team"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upgrade: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodPost, "/teams", token, map[string]any{"name": "Hawks"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected team creation after upgrade, got %d: %s", rec.Code, rec.Body)
	}
}

func TestPlayerSeasonEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	for i := 0; i < 2; i++ {
		s.do(t, http.MethodPost, "/games/"+gameID+"/stats", token, map[string]any{
			"player_id": playerID, "stat_type": "made_2",
		})
	}

	rec := s.do(t, http.MethodGet, "/players/"+playerID+"/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("season: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var season struct {
		GamesPlayed int `json:"games_played"`
		Totals      struct {
			Points int `json:"points"`
		} `json:"totals"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &season)
	if season.GamesPlayed != 1 || season.Totals.Points != 4 {
		t.Fatalf("unexpected season %+v", season)
	}
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "other@example.com", "username": "other", "password": "hunter22",
	})
	var resp struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	if rec := s.do(t, http.MethodGet, "/games/"+gameID, resp.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected foreign game hidden, got %d", rec.Code)
	}
}

func TestHighlightReelsProGate(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)

	rec := s.do(t, http.MethodPost, "/highlight-reels", token, map[string]any{"name": "Best of 2025"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for free user, got %d", rec.Code)
	}

	s.do(t, http.MethodPost, "/subscriptions/upgrade", token, map[string]string{"tier": "pro"})

	rec = s.do(t, http.MethodPost, "/highlight-reels", token, map[string]any{"name": "Best of 2025"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected reel after upgrade, got %d: %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/highlight-reels", token, nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("Best of 2025")) {
		t.Fatalf("expected reel listed, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSubscriptionStatus(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)

	rec := s.do(t, http.MethodGet, "/subscriptions/status", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status struct {
		Tier   string `json:"subscription_tier"`
		Active bool   `json:"active"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Tier != "free" || status.Active {
		t.Fatalf("expected inactive free tier, got %+v", status)
	}

	// Checkout requires a configured Stripe key.
	rec = s.do(t, http.MethodPost, "/subscriptions/checkout", token, map[string]string{"tier": "pro"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without billing config, got %d", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
}

func TestFreeTierGameListOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")

	for i := 0; i < 3; i++ {
		id := s.createGame(t, token, playerID)
		rec := s.do(t, http.MethodPut, "/games/"+id, token, map[string]any{"status": "completed"})
		if rec.Code != http.StatusOK {
			t.Fatalf("complete: expected 200, got %d", rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/games", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list []game.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected free tier to see 2 completed games, got %d", len(list))
	}
}

func TestMediaGateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t)
	playerID := s.createPlayer(t, token, "Jordan Miles")
	gameID := s.createGame(t, token, playerID)

	rec := s.do(t, http.MethodPost, "/games/"+gameID+"/media", token, map[string]any{
		"type": "video", "data": "AAAA",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for free-tier video, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/games/"+gameID+"/media", token, map[string]any{
		"type": "photo", "data": "AAAA",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected photo attached, got %d: %s", rec.Code, rec.Body)
	}
}

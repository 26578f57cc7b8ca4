// Package httpapi exposes the application services as a REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/hooptrack/backend/internal/app"
	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/domain/highlight"
	"github.com/hooptrack/backend/internal/app/domain/player"
	"github.com/hooptrack/backend/internal/app/domain/team"
	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/ledger"
	"github.com/hooptrack/backend/internal/app/live"
	"github.com/hooptrack/backend/internal/app/metrics"
	"github.com/hooptrack/backend/internal/app/services/auth"
	gamessvc "github.com/hooptrack/backend/internal/app/services/games"
	"github.com/hooptrack/backend/internal/app/services/highlights"
	"github.com/hooptrack/backend/internal/app/services/subscriptions"
	"github.com/hooptrack/backend/internal/app/services/summary"
	"github.com/hooptrack/backend/internal/app/services/teams"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	hub *live.Hub
}

// NewHandler returns a mux exposing the REST API. hub may be nil to disable
// the live websocket endpoint.
func NewHandler(application *app.Application, hub *live.Hub) http.Handler {
	h := &handler{app: application, hub: hub}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/", h.auth)
	mux.HandleFunc("/players", h.players)
	mux.HandleFunc("/players/", h.playerResources)
	mux.HandleFunc("/teams", h.teams)
	mux.HandleFunc("/teams/", h.teamResources)
	mux.HandleFunc("/games", h.games)
	mux.HandleFunc("/games/", h.gameResources)
	mux.HandleFunc("/highlight-reels", h.highlightReels)
	mux.HandleFunc("/highlight-reels/", h.highlightReelResources)
	mux.HandleFunc("/subscriptions/", h.subscriptionResources)
	mux.HandleFunc("/health", h.health)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// --- auth -------------------------------------------------------------------

func (h *handler) auth(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auth"), "/")

	switch {
	case action == "register" && r.Method == http.MethodPost:
		var payload struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, token, err := h.app.Auth.Register(r.Context(), payload.Email, payload.Username, payload.Password)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{User: u, Token: token})

	case action == "login" && r.Method == http.MethodPost:
		var payload struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, token, err := h.app.Auth.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{User: u, Token: token})

	case action == "google" && r.Method == http.MethodPost:
		var payload struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, token, err := h.app.Auth.LoginWithGoogle(r.Context(), payload.Email, payload.Name)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{User: u, Token: token})

	case action == "me" && r.Method == http.MethodGet:
		u, err := h.app.Auth.GetUser(r.Context(), h.userID(r))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type tokenResponse struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

// --- players ----------------------------------------------------------------

func (h *handler) players(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload player.Player
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Players.Create(r.Context(), h.userID(r), payload)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		list, err := h.app.Players.List(r.Context(), h.userID(r), r.URL.Query().Get("team_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) playerResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/players")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	playerID := parts[0]
	userID := h.userID(r)

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := h.app.Players.GetOwned(r.Context(), userID, playerID)
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodPut:
			var payload player.Player
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			updated, err := h.app.Players.Update(r.Context(), userID, playerID, payload)
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := h.app.Players.Delete(r.Context(), userID, playerID); err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "stats" && r.Method == http.MethodGet {
		season, err := h.app.Stats.PlayerSeason(r.Context(), userID, playerID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, season)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

// --- teams ------------------------------------------------------------------

func (h *handler) teams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload team.Team
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Teams.Create(r.Context(), h.userID(r), payload)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		list, err := h.app.Teams.List(r.Context(), h.userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) teamResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/teams")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	teamID := parts[0]
	userID := h.userID(r)

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			t, err := h.app.Teams.GetOwned(r.Context(), userID, teamID)
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, t)
		case http.MethodPut:
			var payload team.Team
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			updated, err := h.app.Teams.Update(r.Context(), userID, teamID, payload)
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := h.app.Teams.Delete(r.Context(), userID, teamID); err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case len(parts) == 2 && parts[1] == "players" && r.Method == http.MethodPost:
		var payload struct {
			PlayerID string `json:"player_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Teams.AddPlayer(r.Context(), userID, teamID, payload.PlayerID); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 3 && parts[1] == "players" && r.Method == http.MethodDelete:
		if err := h.app.Teams.RemovePlayer(r.Context(), userID, teamID, parts[2]); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- games ------------------------------------------------------------------

func (h *handler) games(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			TeamID       string    `json:"team_id"`
			HomeTeamName string    `json:"home_team_name"`
			OpponentName string    `json:"opponent_name"`
			GameDate     time.Time `json:"game_date"`
			Location     string    `json:"location"`
			GameType     string    `json:"game_type"`
			Venue        string    `json:"venue"`
			PeriodType   string    `json:"period_type"`
			PlayerIDs    []string  `json:"player_ids"`
			Notes        string    `json:"notes"`
			Tags         []string  `json:"tags"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Games.Create(r.Context(), h.userID(r), gamessvc.CreateParams{
			TeamID:       payload.TeamID,
			HomeTeamName: payload.HomeTeamName,
			OpponentName: payload.OpponentName,
			GameDate:     payload.GameDate,
			Location:     payload.Location,
			GameType:     payload.GameType,
			Venue:        payload.Venue,
			PeriodType:   payload.PeriodType,
			PlayerIDs:    payload.PlayerIDs,
			Notes:        payload.Notes,
			Tags:         payload.Tags,
		})
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		query := storage.GameQuery{
			TeamID: r.URL.Query().Get("team_id"),
			Status: r.URL.Query().Get("status"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
				return
			}
			query.Limit = limit
		}
		list, err := h.app.Games.List(r.Context(), h.userID(r), query)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) gameResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/games")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	gameID := parts[0]
	userID := h.userID(r)

	if len(parts) == 1 {
		h.gameByID(w, r, userID, gameID)
		return
	}

	switch parts[1] {
	case "stats":
		h.gameStats(w, r, userID, gameID)
	case "adjust":
		h.gameAdjust(w, r, userID, gameID)
	case "undo":
		h.gameUndo(w, r, userID, gameID)
	case "shots":
		h.gameShots(w, r, userID, gameID, parts[2:])
	case "media":
		h.gameMedia(w, r, userID, gameID, parts[2:])
	case "summary":
		h.gameSummary(w, r, userID, gameID)
	case "live":
		h.gameLive(w, r, gameID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) gameByID(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	switch r.Method {
	case http.MethodGet:
		g, err := h.app.Games.GetOwned(r.Context(), userID, gameID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, g)

	case http.MethodPut:
		var payload struct {
			HomeTeamName    *string    `json:"home_team_name"`
			OpponentName    *string    `json:"opponent_name"`
			GameDate        *time.Time `json:"game_date"`
			Location        *string    `json:"location"`
			GameType        *string    `json:"game_type"`
			Venue           *string    `json:"venue"`
			OpponentScore   *int       `json:"opponent_score"`
			CurrentPeriod   *int       `json:"current_period"`
			Status          *string    `json:"status"`
			Notes           *string    `json:"notes"`
			Tags            []string   `json:"tags"`
			ScoreboardPhoto *string    `json:"scoreboard_photo"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Games.Update(r.Context(), userID, gameID, gamessvc.UpdateParams{
			HomeTeamName:    payload.HomeTeamName,
			OpponentName:    payload.OpponentName,
			GameDate:        payload.GameDate,
			Location:        payload.Location,
			GameType:        payload.GameType,
			Venue:           payload.Venue,
			OpponentScore:   payload.OpponentScore,
			CurrentPeriod:   payload.CurrentPeriod,
			Status:          payload.Status,
			Notes:           payload.Notes,
			Tags:            payload.Tags,
			ScoreboardPhoto: payload.ScoreboardPhoto,
		})
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := h.app.Games.Delete(r.Context(), userID, gameID); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) gameStats(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		PlayerID string   `json:"player_id"`
		StatType string   `json:"stat_type"`
		Value    int      `json:"value"`
		X        *float64 `json:"x"`
		Y        *float64 `json:"y"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Value == 0 {
		payload.Value = 1
	}

	var loc *ledger.ShotLocation
	if payload.X != nil && payload.Y != nil {
		loc = &ledger.ShotLocation{X: *payload.X, Y: *payload.Y}
	}

	updated, err := h.app.Games.RecordStat(r.Context(), userID, gameID, payload.PlayerID, game.StatKind(payload.StatType), payload.Value, loc)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	metrics.RecordStatEvent(payload.StatType)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) gameAdjust(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		PlayerID string `json:"player_id"`
		StatType string `json:"stat_type"`
		Delta    int    `json:"delta"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Games.AdjustStat(r.Context(), userID, gameID, payload.PlayerID, ledger.AdjustKind(payload.StatType), payload.Delta)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) gameUndo(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Index *int `json:"index"`
	}
	// An empty body means undo the most recent event.
	if err := decodeJSON(r.Body, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var updated game.Game
	var err error
	if payload.Index != nil {
		updated, err = h.app.Games.UndoAt(r.Context(), userID, gameID, *payload.Index)
	} else {
		updated, err = h.app.Games.UndoLast(r.Context(), userID, gameID)
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	metrics.RecordUndo()
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) gameShots(w http.ResponseWriter, r *http.Request, userID, gameID string, rest []string) {
	if len(rest) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	playerID := rest[0]
	shotIndex, err := strconv.Atoi(rest[1])
	if err != nil || shotIndex < 0 {
		writeError(w, http.StatusBadRequest, errors.New("shot index must be a non-negative integer"))
		return
	}

	switch r.Method {
	case http.MethodDelete:
		updated, err := h.app.Games.DeleteShot(r.Context(), userID, gameID, playerID, shotIndex)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodPut:
		var payload struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Games.MoveShot(r.Context(), userID, gameID, playerID, shotIndex, payload.X, payload.Y)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) gameMedia(w http.ResponseWriter, r *http.Request, userID, gameID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var payload game.Media
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.app.Games.AddMedia(r.Context(), userID, gameID, payload)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		updated, err := h.app.Games.RemoveMedia(r.Context(), userID, gameID, rest[0])
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) gameSummary(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	updated, err := h.app.Summary.Generate(r.Context(), userID, gameID)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) gameLive(w http.ResponseWriter, r *http.Request, gameID string) {
	if h.hub == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.hub.ServeWS(w, r, gameID)
}

// --- highlight reels --------------------------------------------------------

func (h *handler) highlightReels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload highlight.Reel
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.app.Highlights.Create(r.Context(), h.userID(r), payload)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		list, err := h.app.Highlights.List(r.Context(), h.userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(list))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) highlightReelResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/highlight-reels")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	reelID := parts[0]
	userID := h.userID(r)

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		reel, err := h.app.Highlights.GetOwned(r.Context(), userID, reelID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, reel)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := h.app.Highlights.Delete(r.Context(), userID, reelID); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "describe" && r.Method == http.MethodPost:
		reel, err := h.app.Highlights.Describe(r.Context(), userID, reelID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, reel)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- subscriptions ----------------------------------------------------------

func (h *handler) subscriptionResources(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/subscriptions"), "/")

	switch {
	case action == "checkout" && r.Method == http.MethodPost:
		var payload struct {
			Tier string `json:"tier"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		session, err := h.app.Subscriptions.CreateCheckout(r.Context(), h.userID(r), user.Tier(payload.Tier))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, session)

	case action == "webhook" && r.Method == http.MethodPost:
		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Subscriptions.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case action == "status" && r.Method == http.MethodGet:
		status, err := h.app.Subscriptions.GetStatus(r.Context(), h.userID(r))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, status)

	case action == "upgrade" && r.Method == http.MethodPost:
		var payload struct {
			Tier string `json:"tier"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		status, err := h.app.Subscriptions.TestUpgrade(r.Context(), h.userID(r), user.Tier(payload.Tier))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, status)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- misc -------------------------------------------------------------------

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) userID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, ledger.ErrPlayerNotInGame),
		errors.Is(err, ledger.ErrShotNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, gamessvc.ErrGameCompleted),
		errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, teams.ErrTeamTierRequired),
		errors.Is(err, gamessvc.ErrProTierRequired),
		errors.Is(err, highlights.ErrProTierRequired),
		errors.Is(err, summary.ErrProTierRequired):
		return http.StatusForbidden
	case errors.Is(err, subscriptions.ErrBillingDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// orEmpty keeps list responses as [] instead of null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

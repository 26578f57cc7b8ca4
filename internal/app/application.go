// Package app wires the domain services into one application aggregate.
package app

import (
	"github.com/hooptrack/backend/internal/ai"
	"github.com/hooptrack/backend/internal/app/services/auth"
	gamessvc "github.com/hooptrack/backend/internal/app/services/games"
	"github.com/hooptrack/backend/internal/app/services/highlights"
	"github.com/hooptrack/backend/internal/app/services/players"
	"github.com/hooptrack/backend/internal/app/services/stats"
	"github.com/hooptrack/backend/internal/app/services/subscriptions"
	"github.com/hooptrack/backend/internal/app/services/summary"
	"github.com/hooptrack/backend/internal/app/services/teams"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/internal/app/storage/memory"
	"github.com/hooptrack/backend/internal/billing"
	"github.com/hooptrack/backend/internal/config"
	"github.com/hooptrack/backend/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users      storage.UserStore
	Players    storage.PlayerStore
	Teams      storage.TeamStore
	Games      storage.GameStore
	Highlights storage.HighlightStore
}

// Options carries optional infrastructure. Nil fields disable the feature.
type Options struct {
	Stripe    *billing.Client
	AI        *ai.Client
	Notifiers []gamessvc.Notifier
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Auth          *auth.Service
	Players       *players.Service
	Teams         *teams.Service
	Games         *gamessvc.Service
	Stats         *stats.Service
	Highlights    *highlights.Service
	Subscriptions *subscriptions.Service
	Summary       *summary.Service
}

// New builds a fully initialised application with the provided stores.
func New(cfg *config.Config, stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Players == nil {
		stores.Players = mem
	}
	if stores.Teams == nil {
		stores.Teams = mem
	}
	if stores.Games == nil {
		stores.Games = mem
	}
	if stores.Highlights == nil {
		stores.Highlights = mem
	}

	if opts.Stripe == nil {
		opts.Stripe = billing.New(cfg.Billing.StripeSecretKey, cfg.Billing.StripeWebhookSecret)
	}
	if opts.AI == nil {
		opts.AI = ai.New(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	}

	// Keep a nil interface when AI is disabled so services can gate on it.
	var completer highlights.Completer
	if opts.AI.Enabled() {
		completer = opts.AI
	}

	authSvc := auth.New(stores.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	playersSvc := players.New(stores.Players, stores.Teams, log)
	teamsSvc := teams.New(stores.Teams, stores.Players, stores.Users, log)
	gamesSvc := gamessvc.New(stores.Games, stores.Players, stores.Users, log, opts.Notifiers...)
	statsSvc := stats.New(stores.Games, stores.Players, log)
	highlightsSvc := highlights.New(stores.Highlights, stores.Games, stores.Users, completer, log)
	subscriptionsSvc := subscriptions.New(stores.Users, opts.Stripe, cfg.Billing.FrontendURL, cfg.Billing.AllowTestUpgrade, log)
	summarySvc := summary.New(gamesSvc, stores.Users, completer, log)

	return &Application{
		log:           log,
		Auth:          authSvc,
		Players:       playersSvc,
		Teams:         teamsSvc,
		Games:         gamesSvc,
		Stats:         statsSvc,
		Highlights:    highlightsSvc,
		Subscriptions: subscriptionsSvc,
		Summary:       summarySvc,
	}, nil
}

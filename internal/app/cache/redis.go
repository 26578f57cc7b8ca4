// Package cache mirrors live game snapshots into Redis so score widgets can
// poll without loading the full aggregate from the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/pkg/logger"
)

const (
	liveGameTTL      = 2 * time.Hour
	completedGameTTL = 6 * time.Hour
)

// GameCache writes game snapshots to Redis. It implements the games
// service's Notifier; failures are logged, never surfaced to the request.
type GameCache struct {
	client *redis.Client
	log    *logger.Logger
}

// New creates a GameCache.
func New(client *redis.Client, log *logger.Logger) *GameCache {
	if log == nil {
		log = logger.NewDefault("cache")
	}
	return &GameCache{client: client, log: log}
}

// GameUpdated stores the snapshot and a separately keyed scoreline.
func (c *GameCache) GameUpdated(ctx context.Context, g game.Game) {
	if c == nil || c.client == nil {
		return
	}

	ttl := liveGameTTL
	if g.Status == game.StatusCompleted {
		ttl = completedGameTTL
	}

	data, err := json.Marshal(g)
	if err != nil {
		c.log.WithError(err).Warn("marshal game snapshot")
		return
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, snapshotKey(g.ID), data, ttl)
	pipe.Set(ctx, scoreKey(g.ID), fmt.Sprintf("%d-%d", g.OurScore, g.OpponentScore), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).WithField("game_id", g.ID).Warn("write game snapshot")
	}
}

// ReadSnapshot returns a cached game, or redis.Nil when absent.
func (c *GameCache) ReadSnapshot(ctx context.Context, gameID string) (game.Game, error) {
	data, err := c.client.Get(ctx, snapshotKey(gameID)).Bytes()
	if err != nil {
		return game.Game{}, err
	}
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return game.Game{}, fmt.Errorf("unmarshal game snapshot: %w", err)
	}
	return g, nil
}

func snapshotKey(gameID string) string {
	return fmt.Sprintf("game:%s:snapshot", gameID)
}

func scoreKey(gameID string) string {
	return fmt.Sprintf("game:%s:score", gameID)
}

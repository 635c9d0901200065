package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
)

var ErrGameNotFound = errors.New("game not found")

const (
	gameKeyPrefix = "game:"
	resultsKey    = "results"
)

// GameRepository archives finished games.
type GameRepository interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	ListRecent(ctx context.Context, limit int64) ([]*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbGame struct {
	client *redis.Client
	ttl    time.Duration
	limit  int64
}

// NewGameRepository stores each game under game:<id> for ttl (zero keeps it forever) and
// keeps the ids of the latest limit games in the results list, newest first.
func NewGameRepository(client *redis.Client, ttl time.Duration, limit int64) GameRepository {
	return &dbGame{
		client: client,
		ttl:    ttl,
		limit:  limit,
	}
}

func (that *dbGame) CreateOrUpdate(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKeyPrefix+game.ID, gameJSON, that.ttl)
		pipe.LRem(ctx, resultsKey, 0, game.ID)
		pipe.LPush(ctx, resultsKey, game.ID)

		if that.limit > 0 {
			pipe.LTrim(ctx, resultsKey, 0, that.limit-1)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

// ListRecent returns up to limit archived games, newest first. Ids whose game expired
// are skipped.
func (that *dbGame) ListRecent(ctx context.Context, limit int64) ([]*entity.Game, error) {
	games := make([]*entity.Game, 0)
	if limit <= 0 {
		return games, nil
	}

	ids, err := that.client.LRange(ctx, resultsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	if len(ids) == 0 {
		return games, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, gameKeyPrefix+id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var game entity.Game
		if err = json.Unmarshal([]byte(raw), &game); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game %s: %w", ids[i], err)
		}

		games = append(games, &game)
	}

	return games, nil
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	deleted, err := that.client.Del(ctx, gameKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game by id: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	if err = that.client.LRem(ctx, resultsKey, 0, id).Err(); err != nil {
		return fmt.Errorf("failed to drop game from results: %w", err)
	}

	return nil
}

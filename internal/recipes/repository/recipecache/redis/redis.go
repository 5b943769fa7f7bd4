package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/pkg/redistools"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/redis/go-redis/v9"
)

type RecipeCache struct {
	rdb     *redis.Client
	expTime time.Duration
}

func New(ctx context.Context, cfg config.RedisCache) (RecipeCache, error) {
	rdb, err := redistools.Connect(ctx, cfg)
	if err != nil {
		return RecipeCache{}, fmt.Errorf("connect error: %w", err)
	}

	return RecipeCache{
		rdb:     rdb,
		expTime: cfg.ExpTime,
	}, nil
}

func (rc RecipeCache) SetRecipe(ctx context.Context, recipe models.Recipe) error {
	recipeJSON, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	key := fmt.Sprintf("recipe:%d:%d", recipe.UserID, recipe.ID)

	if _, err = rc.rdb.Set(ctx, key, recipeJSON, rc.expTime).Result(); err != nil {
		return fmt.Errorf("set error: %w", err)
	}

	return nil
}

func (rc RecipeCache) GetRecipe(ctx context.Context, userID, recipeID int64) (models.Recipe, error) {
	key := fmt.Sprintf("recipe:%d:%d", userID, recipeID)

	recipeJSON, err := rc.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return models.Recipe{}, reciperepo.ErrNotFound
	} else if err != nil {
		return models.Recipe{}, fmt.Errorf("get error: %w", err)
	}

	var recipe models.Recipe

	if err := json.Unmarshal([]byte(recipeJSON), &recipe); err != nil {
		return models.Recipe{}, fmt.Errorf("unmarshal error: %w", err)
	}

	// The owner is not serialized into the cached payload.
	recipe.UserID = userID

	return recipe, nil
}

func (rc RecipeCache) DeleteRecipe(ctx context.Context, userID, recipeID int64) error {
	key := fmt.Sprintf("recipe:%d:%d", userID, recipeID)

	if _, err := rc.rdb.Del(ctx, key).Result(); err != nil {
		return fmt.Errorf("del error: %w", err)
	}

	return nil
}

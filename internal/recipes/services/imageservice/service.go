package imageservice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/mealbook/recipes_api/internal/recipes/repository/imagestore"
	"github.com/mealbook/recipes_api/pkg/logger"
)

type ImageService struct {
	recipeRepo  Repository
	recipeCache Cache
	store       Store
	lg          logger.Logger
}

type Repository interface {
	SetRecipeImage(ctx context.Context, userID, recipeID int64, imageKey string) error
}

type Cache interface {
	DeleteRecipe(ctx context.Context, userID, recipeID int64) error
}

type Store interface {
	StoreAndDetect(ctx context.Context, key string, image io.Reader) (imagestore.DetectResult, error)
}

func New(recipeRepo Repository, recipeCache Cache, store Store, lg logger.Logger) *ImageService {
	return &ImageService{
		recipeRepo:  recipeRepo,
		recipeCache: recipeCache,
		store:       store,
		lg:          lg,
	}
}

// UploadImage attaches an image to an owned recipe, then hands it to the
// storage/label collaborator. The collaborator's result or error is surfaced
// as-is, without retries.
func (is *ImageService) UploadImage(ctx context.Context, user models.User,
	recipeID int64, filename string, image io.Reader,
) (imagestore.DetectResult, error) {
	if filename == "" {
		return imagestore.DetectResult{}, fmt.Errorf("%w: image: filename required", models.ErrValidation)
	}

	key := ImageKey(user.Email, filename)

	if err := is.recipeRepo.SetRecipeImage(ctx, user.ID, recipeID, key); err != nil {
		return imagestore.DetectResult{}, fmt.Errorf("set recipe image error: %w", err)
	}

	if err := is.recipeCache.DeleteRecipe(ctx, user.ID, recipeID); err != nil {
		is.lg.Errorf("delete recipe cache error: %s", err.Error())
	}

	res, err := is.store.StoreAndDetect(ctx, key, image)
	if err != nil {
		return imagestore.DetectResult{}, fmt.Errorf("store and detect error: %w", err)
	}

	return res, nil
}

// ImageKey builds the object key as <email local part>/<filename>.
func ImageKey(email, filename string) string {
	local, _, _ := strings.Cut(email, "@")

	return local + "/" + filename
}

package recipeservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	repo "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/mealbook/recipes_api/pkg/logger"
	"github.com/shopspring/decimal"
)

type RecipeService struct {
	recipeRepo  Repository
	recipeCache Cache
	lg          logger.Logger
}

type Repository interface {
	CreateRecipe(context.Context, models.Recipe, []string) (models.Recipe, error)
	UpdateRecipe(context.Context, models.Recipe, []string) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID int64) error
	GetRecipe(ctx context.Context, userID, recipeID int64) (models.Recipe, error)
	ListRecipes(context.Context, repo.ListRecipesRequest) ([]models.Recipe, error)
	Shutdown(context.Context) error
}

type Cache interface {
	SetRecipe(context.Context, models.Recipe) error
	GetRecipe(ctx context.Context, userID, recipeID int64) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID int64) error
}

func New(recipeRepo Repository, recipeCache Cache, lg logger.Logger) *RecipeService {
	return &RecipeService{
		recipeRepo:  recipeRepo,
		recipeCache: recipeCache,
		lg:          lg,
	}
}

// ListRecipes returns the user's recipes, newest first. tagFilter is an
// optional comma separated list of tag ids; a recipe matches when it carries
// at least one of them.
func (rs *RecipeService) ListRecipes(ctx context.Context, user models.User, tagFilter string) ([]models.Recipe, error) {
	tagIDs, err := ParseTagFilter(tagFilter)
	if err != nil {
		return nil, err
	}

	recipes, err := rs.recipeRepo.ListRecipes(ctx, repo.ListRecipesRequest{
		UserID: user.ID,
		TagIDs: tagIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list recipes error: %w", err)
	}

	return recipes, nil
}

func (rs *RecipeService) GetRecipe(ctx context.Context, user models.User, recipeID int64) (models.Recipe, error) {
	r, err := rs.recipeCache.GetRecipe(ctx, user.ID, recipeID)
	if err == nil {
		rs.lg.Info("cache hit")

		return r, nil
	}

	rs.lg.Info("cache missed")

	r, err = rs.recipeRepo.GetRecipe(ctx, user.ID, recipeID)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("get recipe error: %w", err)
	}

	if err := rs.recipeCache.SetRecipe(ctx, r); err != nil {
		rs.lg.Errorf("set recipe cache error: %s", err.Error())
	}

	return r, nil
}

func (rs *RecipeService) CreateRecipe(ctx context.Context, user models.User, req CreateRecipeRequest) (models.Recipe, error) {
	if err := validateFields(req.Title, req.Description, req.TimeMinutes, req.Price); err != nil {
		return models.Recipe{}, err
	}

	recipe := models.Recipe{ //nolint:exhaustruct
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
	}

	r, err := rs.recipeRepo.CreateRecipe(ctx, recipe, req.TagNames)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("create recipe error: %w", err)
	}

	if err := rs.recipeCache.SetRecipe(ctx, r); err != nil {
		rs.lg.Errorf("set recipe cache error: %s", err.Error())
	}

	return r, nil
}

// UpdateRecipe merges the provided fields into the stored recipe. Ownership
// never changes; a recipe of another user is reported as not found.
func (rs *RecipeService) UpdateRecipe(ctx context.Context, user models.User, req UpdateRecipeRequest) (models.Recipe, error) {
	recipe, err := rs.recipeRepo.GetRecipe(ctx, user.ID, req.RecipeID)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("get recipe error: %w", err)
	}

	if req.Title != nil {
		recipe.Title = *req.Title
	}

	if req.Description != nil {
		recipe.Description = *req.Description
	}

	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}

	if req.Price != nil {
		recipe.Price = *req.Price
	}

	if req.Link != nil {
		recipe.Link = *req.Link
	}

	if err := validateFields(recipe.Title, recipe.Description, recipe.TimeMinutes, recipe.Price); err != nil {
		return models.Recipe{}, err
	}

	tagNames := req.TagNames

	if req.ReplaceTags && tagNames == nil {
		tagNames = []string{}
	}

	r, err := rs.recipeRepo.UpdateRecipe(ctx, recipe, tagNames)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("update recipe error: %w", err)
	}

	if err := rs.recipeCache.SetRecipe(ctx, r); err != nil {
		rs.lg.Errorf("set recipe cache error: %s", err.Error())
	}

	return r, nil
}

func (rs *RecipeService) DeleteRecipe(ctx context.Context, user models.User, recipeID int64) error {
	if err := rs.recipeCache.DeleteRecipe(ctx, user.ID, recipeID); err != nil {
		rs.lg.Errorf("delete recipe cache error: %s", err.Error())
	}

	if err := rs.recipeRepo.DeleteRecipe(ctx, user.ID, recipeID); err != nil {
		return fmt.Errorf("delete recipe error: %w", err)
	}

	return nil
}

func (rs *RecipeService) Shutdown(ctx context.Context) error {
	if err := rs.recipeRepo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown recipe repo error: %w", err)
	}

	return nil
}

// ParseTagFilter parses a comma separated list of tag ids. Every element
// must be a positive integer; an empty filter means no restriction.
func ParseTagFilter(filter string) ([]int64, error) {
	if filter == "" {
		return nil, nil
	}

	parts := strings.Split(filter, ",")
	ids := make([]int64, 0, len(parts))

	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: tags: %q is not a positive integer id", models.ErrValidation, p)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func validateFields(title, description string, timeMinutes int, price decimal.Decimal) error {
	if title == "" {
		return fmt.Errorf("%w: title: required", models.ErrValidation)
	}

	if description == "" {
		return fmt.Errorf("%w: description: required", models.ErrValidation)
	}

	if timeMinutes <= 0 {
		return fmt.Errorf("%w: time_minutes: must be a positive integer", models.ErrValidation)
	}

	if price.IsNegative() {
		return fmt.Errorf("%w: price: must not be negative", models.ErrValidation)
	}

	return nil
}

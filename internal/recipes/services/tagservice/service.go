package tagservice

import (
	"context"
	"fmt"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	repo "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/mealbook/recipes_api/pkg/logger"
)

type TagService struct {
	tagRepo Repository
	lg      logger.Logger
}

type Repository interface {
	ListTags(context.Context, repo.ListTagsRequest) ([]models.Tag, error)
	UpdateTag(context.Context, models.Tag) error
	DeleteTag(ctx context.Context, userID, tagID int64) error
}

func New(tagRepo Repository, lg logger.Logger) *TagService {
	return &TagService{
		tagRepo: tagRepo,
		lg:      lg,
	}
}

// ListTags returns the user's tags ordered by name descending. assignedOnly
// is the raw query value: "" or "0" for all, "1" for tags on at least one of
// the user's recipes, "2" for tags on none.
func (ts *TagService) ListTags(ctx context.Context, user models.User, assignedOnly string) ([]models.Tag, error) {
	assigned, err := ParseAssignment(assignedOnly)
	if err != nil {
		return nil, err
	}

	tags, err := ts.tagRepo.ListTags(ctx, repo.ListTagsRequest{
		UserID:   user.ID,
		Assigned: assigned,
	})
	if err != nil {
		return nil, fmt.Errorf("list tags error: %w", err)
	}

	return tags, nil
}

func (ts *TagService) UpdateTag(ctx context.Context, user models.User, tagID int64, name string) (models.Tag, error) {
	if name == "" {
		return models.Tag{}, fmt.Errorf("%w: name: required", models.ErrValidation)
	}

	tag := models.Tag{
		ID:     tagID,
		UserID: user.ID,
		Name:   name,
	}

	if err := ts.tagRepo.UpdateTag(ctx, tag); err != nil {
		return models.Tag{}, fmt.Errorf("update tag error: %w", err)
	}

	return tag, nil
}

func (ts *TagService) DeleteTag(ctx context.Context, user models.User, tagID int64) error {
	if err := ts.tagRepo.DeleteTag(ctx, user.ID, tagID); err != nil {
		return fmt.Errorf("delete tag error: %w", err)
	}

	return nil
}

// ParseAssignment maps the assigned_only query value onto the repository
// enum. Anything outside {"", "0", "1", "2"} is a validation error.
func ParseAssignment(assignedOnly string) (repo.TagAssignment, error) {
	switch assignedOnly {
	case "", "0":
		return repo.AssignmentAll, nil
	case "1":
		return repo.AssignmentAssigned, nil
	case "2":
		return repo.AssignmentUnassigned, nil
	default:
		return repo.AssignmentAll,
			fmt.Errorf("%w: assigned_only: must be 0, 1 or 2", models.ErrValidation)
	}
}

package tagservice_test

import (
	"context"
	"testing"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	repo "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/mealbook/recipes_api/internal/recipes/services/tagservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTagRepo struct {
	tags     map[int64]models.Tag
	assigned map[int64]bool
	lastReq  repo.ListTagsRequest
}

func (f *fakeTagRepo) ListTags(_ context.Context, req repo.ListTagsRequest) ([]models.Tag, error) {
	f.lastReq = req

	res := make([]models.Tag, 0, len(f.tags))

	for id, t := range f.tags {
		if t.UserID != req.UserID {
			continue
		}

		switch req.Assigned {
		case repo.AssignmentAssigned:
			if !f.assigned[id] {
				continue
			}
		case repo.AssignmentUnassigned:
			if f.assigned[id] {
				continue
			}
		case repo.AssignmentAll:
		}

		res = append(res, t)
	}

	return res, nil
}

func (f *fakeTagRepo) UpdateTag(_ context.Context, tag models.Tag) error {
	stored, ok := f.tags[tag.ID]
	if !ok || stored.UserID != tag.UserID {
		return repo.ErrTagNotFound
	}

	f.tags[tag.ID] = tag

	return nil
}

func (f *fakeTagRepo) DeleteTag(_ context.Context, userID, tagID int64) error {
	stored, ok := f.tags[tagID]
	if !ok || stored.UserID != userID {
		return repo.ErrTagNotFound
	}

	delete(f.tags, tagID)

	return nil
}

func newService() (*tagservice.TagService, *fakeTagRepo) {
	fr := &fakeTagRepo{
		tags:     make(map[int64]models.Tag),
		assigned: make(map[int64]bool),
		lastReq:  repo.ListTagsRequest{}, //nolint:exhaustruct
	}

	return tagservice.New(fr, zap.NewNop().Sugar()), fr
}

func TestParseAssignment(t *testing.T) {
	for raw, want := range map[string]repo.TagAssignment{
		"":  repo.AssignmentAll,
		"0": repo.AssignmentAll,
		"1": repo.AssignmentAssigned,
		"2": repo.AssignmentUnassigned,
	} {
		got, err := tagservice.ParseAssignment(raw)
		require.NoError(t, err, "value %q", raw)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"3", "-1", "x", "01"} {
		_, err := tagservice.ParseAssignment(bad)
		require.Error(t, err, "value %q", bad)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestListTagsPartition(t *testing.T) {
	svc, fr := newService()
	user := models.User{ID: 1} //nolint:exhaustruct

	fr.tags[1] = models.Tag{ID: 1, UserID: 1, Name: "Vegan"}
	fr.tags[2] = models.Tag{ID: 2, UserID: 1, Name: "Dessert"}
	fr.tags[3] = models.Tag{ID: 3, UserID: 2, Name: "other users tag"}
	fr.assigned[1] = true

	all, err := svc.ListTags(context.Background(), user, "0")
	require.NoError(t, err)
	assigned, err := svc.ListTags(context.Background(), user, "1")
	require.NoError(t, err)
	unassigned, err := svc.ListTags(context.Background(), user, "2")
	require.NoError(t, err)

	assert.Len(t, all, 2)
	require.Len(t, assigned, 1)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "Vegan", assigned[0].Name)
	assert.Equal(t, "Dessert", unassigned[0].Name)
}

func TestListTagsInvalidFilter(t *testing.T) {
	svc, _ := newService()

	_, err := svc.ListTags(context.Background(), models.User{ID: 1}, "7") //nolint:exhaustruct
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateTag(t *testing.T) {
	svc, fr := newService()
	user := models.User{ID: 1} //nolint:exhaustruct

	fr.tags[1] = models.Tag{ID: 1, UserID: 1, Name: "Vegan"}

	tag, err := svc.UpdateTag(context.Background(), user, 1, "Vegetarian")
	require.NoError(t, err)
	assert.Equal(t, "Vegetarian", tag.Name)

	_, err = svc.UpdateTag(context.Background(), user, 1, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UpdateTag(context.Background(), models.User{ID: 2}, 1, "stolen") //nolint:exhaustruct
	assert.ErrorIs(t, err, repo.ErrTagNotFound)
}

func TestDeleteTag(t *testing.T) {
	svc, fr := newService()
	user := models.User{ID: 1} //nolint:exhaustruct

	fr.tags[1] = models.Tag{ID: 1, UserID: 1, Name: "Vegan"}

	require.NoError(t, svc.DeleteTag(context.Background(), user, 1))
	assert.ErrorIs(t, svc.DeleteTag(context.Background(), user, 1), repo.ErrTagNotFound)
}

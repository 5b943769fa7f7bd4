package imageservice_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/mealbook/recipes_api/internal/recipes/repository/imagestore"
	repo "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/mealbook/recipes_api/internal/recipes/services/imageservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeImageRepo struct {
	ownerID int64
	keys    map[int64]string
}

func (f *fakeImageRepo) SetRecipeImage(_ context.Context, userID, recipeID int64, imageKey string) error {
	if userID != f.ownerID {
		return repo.ErrNotFound
	}

	f.keys[recipeID] = imageKey

	return nil
}

type fakeCache struct{}

func (fakeCache) DeleteRecipe(context.Context, int64, int64) error { return nil }

type fakeStore struct {
	err     error
	lastKey string
}

func (f *fakeStore) StoreAndDetect(_ context.Context, key string, _ io.Reader) (imagestore.DetectResult, error) {
	f.lastKey = key

	if f.err != nil {
		return imagestore.DetectResult{}, f.err
	}

	return imagestore.DetectResult{
		URL: "https://bucket.example.com/" + key,
		Labels: []imagestore.Label{
			{Name: "Food", Confidence: 99.1},
		},
	}, nil
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "user/pic.jpg", imageservice.ImageKey("user@example.com", "pic.jpg"))
}

func TestUploadImage(t *testing.T) {
	fr := &fakeImageRepo{ownerID: 1, keys: make(map[int64]string)}
	st := &fakeStore{} //nolint:exhaustruct
	svc := imageservice.New(fr, fakeCache{}, st, zap.NewNop().Sugar())

	user := models.User{ID: 1, Email: "user@example.com"} //nolint:exhaustruct

	res, err := svc.UploadImage(context.Background(), user, 7, "pic.jpg", strings.NewReader("img"))
	require.NoError(t, err)

	assert.Equal(t, "user/pic.jpg", st.lastKey)
	assert.Equal(t, "user/pic.jpg", fr.keys[7])
	assert.Equal(t, "https://bucket.example.com/user/pic.jpg", res.URL)
	require.Len(t, res.Labels, 1)
	assert.Equal(t, "Food", res.Labels[0].Name)
}

func TestUploadImageNotOwned(t *testing.T) {
	fr := &fakeImageRepo{ownerID: 1, keys: make(map[int64]string)}
	st := &fakeStore{} //nolint:exhaustruct
	svc := imageservice.New(fr, fakeCache{}, st, zap.NewNop().Sugar())

	other := models.User{ID: 2, Email: "other@example.com"} //nolint:exhaustruct

	_, err := svc.UploadImage(context.Background(), other, 7, "pic.jpg", strings.NewReader("img"))
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.Empty(t, st.lastKey)
}

func TestUploadImageCollaboratorError(t *testing.T) {
	fr := &fakeImageRepo{ownerID: 1, keys: make(map[int64]string)}
	stErr := errors.New("credentials not available")
	st := &fakeStore{err: stErr} //nolint:exhaustruct
	svc := imageservice.New(fr, fakeCache{}, st, zap.NewNop().Sugar())

	user := models.User{ID: 1, Email: "user@example.com"} //nolint:exhaustruct

	_, err := svc.UploadImage(context.Background(), user, 7, "pic.jpg", strings.NewReader("img"))
	assert.ErrorIs(t, err, stErr)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/mealbook/recipes_api/internal/recipes/repository/userrepo"
)

type Error struct {
	Err string `json:"error"`
}

func (se Error) ToJSON() []byte {
	b, err := json.Marshal(se)
	if err != nil {
		se.Err = err.Error()

		b, err := json.Marshal(se)
		if err != nil {
			return []byte(`{
				"error": "marshal error"
			  }`)
		}

		return b
	}

	return b
}

// statusFromError maps service errors onto HTTP statuses. Not-found is
// reported identically whether the resource is missing or owned by someone
// else, so nothing about other users' data leaks.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, userrepo.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, reciperepo.ErrNotFound),
		errors.Is(err, reciperepo.ErrTagNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

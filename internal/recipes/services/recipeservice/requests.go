package recipeservice

import "github.com/shopspring/decimal"

type CreateRecipeRequest struct {
	Title       string
	Description string
	TimeMinutes int
	Price       decimal.Decimal
	Link        string
	TagNames    []string
}

// UpdateRecipeRequest carries a partial update. Nil fields are left as they
// are; TagNames nil keeps the current associations, an empty slice clears them.
type UpdateRecipeRequest struct {
	RecipeID    int64
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Link        *string
	TagNames    []string
	ReplaceTags bool
}

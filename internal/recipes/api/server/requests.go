package server

import "github.com/shopspring/decimal"

type tagBody struct {
	Name string `json:"name"`
}

// Recipe payloads decode every field as a pointer so that absent and zero
// values can be told apart. There is intentionally no owner field: anything
// unknown in the payload, including "user", is dropped on decode.
type recipeBody struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	TimeMinutes *int             `json:"time_minutes"` //nolint:tagliatelle
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"`
	Tags        *[]tagBody       `json:"tags"`
}

func (rb recipeBody) tagNames() []string {
	if rb.Tags == nil {
		return nil
	}

	names := make([]string, 0, len(*rb.Tags))
	for _, t := range *rb.Tags {
		names = append(names, t.Name)
	}

	return names
}

type authBody struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

package models

type User struct {
	ID           int64  `json:"user_id"` //nolint:tagliatelle
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsStaff      bool   `json:"is_staff"`     //nolint:tagliatelle
	IsSuperuser  bool   `json:"is_superuser"` //nolint:tagliatelle
}

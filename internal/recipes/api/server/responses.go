package server

type TokenResponse struct {
	Token string `json:"token"`
}

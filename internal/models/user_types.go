package models

// User is the Google profile of the signed-in user, as returned by the
// userinfo endpoint.
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

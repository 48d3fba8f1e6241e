package domain

// Session is the authentication state visible to the rest of the client.
// Ready is never true without a resolved UserID; anonymous ids are still
// valid, stable identifiers.
type Session struct {
	UserID string
	Ready  bool
}

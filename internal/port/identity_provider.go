package port

import "context"

// User is the resolved identity. UID is opaque and stable for the session.
type User struct {
	UID       string
	Anonymous bool
}

type IdentityProvider interface {
	// OnAuthStateChanged registers a listener. It fires immediately with the
	// current state (nil when unauthenticated) and again on every change.
	OnAuthStateChanged(cb func(*User)) Unsubscribe

	// SignInAnonymously establishes an anonymous session. On success the
	// state-change listeners fire with the new user.
	SignInAnonymously(ctx context.Context) error

	// SignInWithCustomToken establishes a session from a pre-issued token.
	SignInWithCustomToken(ctx context.Context, token string) error
}

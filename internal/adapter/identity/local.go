package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/restkeep/stockfeed/internal/port"
)

var (
	ErrBadToken   = errors.New("invalid auth token")
	ErrNoSubject  = errors.New("auth token has no subject")
	ErrNoVerifier = errors.New("no token verification secret configured")
)

// LocalProvider is the identity collaborator. Anonymous sign-in mints a
// stable opaque uid; custom-token sign-in verifies an HS256 JWT and adopts
// its subject. State-change listeners fire immediately on registration with
// the current state and again after every change.
type LocalProvider struct {
	secret []byte

	mu        sync.Mutex
	user      *port.User
	listeners map[int]func(*port.User)
	nextID    int
}

// NewLocalProvider builds a provider. secret is the HMAC key used to verify
// pre-issued tokens; it may be empty when only anonymous sign-in is used.
func NewLocalProvider(secret string) *LocalProvider {
	return &LocalProvider{
		secret:    []byte(secret),
		listeners: make(map[int]func(*port.User)),
	}
}

func (p *LocalProvider) OnAuthStateChanged(cb func(*port.User)) port.Unsubscribe {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = cb
	current := p.user
	p.mu.Unlock()

	cb(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *LocalProvider) SignInAnonymously(ctx context.Context) error {
	p.setUser(&port.User{
		UID:       "anon-" + uuid.New().String(),
		Anonymous: true,
	})
	return nil
}

func (p *LocalProvider) SignInWithCustomToken(ctx context.Context, token string) error {
	if len(p.secret) == 0 {
		return ErrNoVerifier
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return ErrNoSubject
	}

	p.setUser(&port.User{UID: sub})
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (p *LocalProvider) CurrentUser() *port.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

func (p *LocalProvider) setUser(u *port.User) {
	p.mu.Lock()
	p.user = u
	cbs := make([]func(*port.User), 0, len(p.listeners))
	for _, cb := range p.listeners {
		cbs = append(cbs, cb)
	}
	p.mu.Unlock()

	for _, cb := range cbs {
		cb(u)
	}
}

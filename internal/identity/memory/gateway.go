// Package memory provides an in-process identity gateway used in development
// and tests. Codes are single use and expire; credentials live only for the
// process lifetime.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carebridge/internal/identity"
	"carebridge/pkg/requestcontext"
)

const codeValidity = 5 * time.Minute

type user struct {
	id       string
	email    string
	name     string
	password string
	verified bool
}

type issuedCode struct {
	value    string
	issuedAt time.Time
	consumed bool
}

// Gateway is an in-memory identity.Gateway. Safe for concurrent use.
type Gateway struct {
	mu                  sync.Mutex
	users               map[string]*user // keyed by lowercased email
	codes               map[string]*issuedCode
	current             *identity.Identity
	requireVerification bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// RequireVerification makes SignUp report that a verification step is needed,
// matching a gateway configured to verify email addresses.
func RequireVerification() Option {
	return func(g *Gateway) { g.requireVerification = true }
}

func New(opts ...Option) *Gateway {
	g := &Gateway{
		users: make(map[string]*user),
		codes: make(map[string]*issuedCode),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) SignUp(ctx context.Context, email, password, displayName string) (identity.SignUpResult, error) {
	key := strings.ToLower(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.users[key]; exists {
		return identity.SignUpResult{}, identity.ErrDuplicateIdentity
	}

	u := &user{
		id:       uuid.NewString(),
		email:    email,
		name:     displayName,
		password: password,
		verified: !g.requireVerification,
	}
	g.users[key] = u

	if g.requireVerification {
		g.issueCodeLocked(ctx, key)
		return identity.SignUpResult{RequiresVerification: true}, nil
	}

	g.current = &identity.Identity{ID: u.id, Email: u.email, Name: u.name}
	return identity.SignUpResult{}, nil
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) error {
	key := strings.ToLower(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.users[key]
	if !ok || u.password != password {
		return identity.ErrInvalidCredentials
	}

	g.current = &identity.Identity{ID: u.id, Email: u.email, Name: u.name}
	return nil
}

func (g *Gateway) SendVerificationCode(ctx context.Context, email string) error {
	key := strings.ToLower(email)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.users[key]; !ok {
		// Do not reveal whether the address is registered.
		return nil
	}
	g.issueCodeLocked(ctx, key)
	return nil
}

func (g *Gateway) VerifyCode(ctx context.Context, email, code string) error {
	key := strings.ToLower(email)
	now := requestcontext.Now(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	issued, ok := g.codes[key]
	if !ok || issued.consumed || issued.value != code {
		return identity.ErrCodeInvalid
	}
	if now.Sub(issued.issuedAt) > codeValidity {
		return identity.ErrCodeExpired
	}
	issued.consumed = true

	u, ok := g.users[key]
	if !ok {
		return identity.ErrCodeInvalid
	}
	u.verified = true
	g.current = &identity.Identity{ID: u.id, Email: u.email, Name: u.name}
	return nil
}

func (g *Gateway) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return nil, nil
	}
	out := *g.current
	return &out, nil
}

// SetCurrent installs an already-authenticated identity, as a session header
// would. Intended for tests and development seeding.
func (g *Gateway) SetCurrent(id *identity.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id == nil {
		g.current = nil
		return
	}
	out := *id
	g.current = &out
}

// LastCode returns the most recently issued code for email, or "" if none is
// outstanding. Intended for tests.
func (g *Gateway) LastCode(email string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	issued, ok := g.codes[strings.ToLower(email)]
	if !ok || issued.consumed {
		return ""
	}
	return issued.value
}

func (g *Gateway) issueCodeLocked(ctx context.Context, key string) {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	g.codes[key] = &issuedCode{
		value:    hex.EncodeToString(buf),
		issuedAt: requestcontext.Now(ctx),
	}
}

// Package server runs the networked table: a reactor goroutine owning
// all TCP connections and a driver goroutine owning the game state,
// joined by two bounded channels.
package server

import (
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/feltpoker/felt/internal/protocol"
)

// Token is the stable handle for one TCP connection.
type Token uint64

const (
	// TokenListener and TokenWaker are reserved; clients start at 2.
	TokenListener Token = 0
	TokenWaker    Token = 1

	firstClientToken Token = 2
)

// session tracks one token from accept to confirmation.
type session struct {
	username  string
	confirmed bool
	openedAt  time.Time
}

// SweptToken is an unconfirmed token that outlived the connect timeout.
type SweptToken struct {
	Token    Token
	Username string
}

// TokenManager issues connection tokens and owns the token-to-username
// binding. The reactor's hub and accept goroutines both touch it, so
// every method locks.
type TokenManager struct {
	mu        sync.Mutex
	clock     quartz.Clock
	sessions  map[Token]*session
	usernames map[string]Token
	recycled  []Token
	next      Token
}

func NewTokenManager(clock quartz.Clock) *TokenManager {
	return &TokenManager{
		clock:     clock,
		sessions:  make(map[Token]*session),
		usernames: make(map[string]Token),
		next:      firstClientToken,
	}
}

// NewToken issues the smallest available token: recycled numbers are
// reused first, smallest first.
func (tm *TokenManager) NewToken() Token {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var tok Token
	if len(tm.recycled) > 0 {
		tok = tm.recycled[0]
		tm.recycled = tm.recycled[1:]
	} else {
		tok = tm.next
		tm.next++
	}
	tm.sessions[tok] = &session{openedAt: tm.clock.Now()}
	return tok
}

// AssociateUsername binds a name to a freshly accepted token. It fails
// AlreadyAssociated when either side of the binding is taken, and
// Expired when the token has already been recycled out from under the
// caller.
func (tm *TokenManager) AssociateUsername(tok Token, name string) *protocol.ClientError {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s, ok := tm.sessions[tok]
	if !ok {
		if tok >= firstClientToken && tok < tm.next {
			return &protocol.ClientError{Kind: protocol.ErrExpired}
		}
		return &protocol.ClientError{Kind: protocol.ErrDoesNotExist}
	}
	if s.username != "" {
		return &protocol.ClientError{Kind: protocol.ErrAlreadyAssociated}
	}
	if _, taken := tm.usernames[name]; taken {
		return &protocol.ClientError{Kind: protocol.ErrAlreadyAssociated}
	}
	s.username = name
	tm.usernames[name] = tok
	return nil
}

// Confirm marks a token's handshake complete. Confirmed tokens are
// exempt from the connect-timeout sweep.
func (tm *TokenManager) Confirm(tok Token) *protocol.ClientError {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s, ok := tm.sessions[tok]
	if !ok {
		return &protocol.ClientError{Kind: protocol.ErrDoesNotExist}
	}
	s.confirmed = true
	return nil
}

// Confirmed reports whether the token finished its handshake.
func (tm *TokenManager) Confirmed(tok Token) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s, ok := tm.sessions[tok]
	return ok && s.confirmed
}

// Username returns the name bound to a live token.
func (tm *TokenManager) Username(tok Token) (string, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s, ok := tm.sessions[tok]
	if !ok || s.username == "" {
		return "", false
	}
	return s.username, true
}

// TokenFor returns the live token bound to a name.
func (tm *TokenManager) TokenFor(name string) (Token, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tok, ok := tm.usernames[name]
	return tok, ok
}

// Recycle releases a token and its username binding. The number joins
// the reuse pool. Recycling an already swept token changes nothing.
func (tm *TokenManager) Recycle(tok Token) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s, ok := tm.sessions[tok]
	if !ok {
		return
	}
	delete(tm.sessions, tok)
	if s.username != "" {
		delete(tm.usernames, s.username)
	}
	tm.pool(tok)
}

// SweepExpired returns every unconfirmed token whose age reached
// maxAge, recycling each. A given token is returned at most once.
func (tm *TokenManager) SweepExpired(maxAge time.Duration) []SweptToken {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := tm.clock.Now()
	var swept []SweptToken
	for tok, s := range tm.sessions {
		if s.confirmed || now.Sub(s.openedAt) < maxAge {
			continue
		}
		swept = append(swept, SweptToken{Token: tok, Username: s.username})
		delete(tm.sessions, tok)
		if s.username != "" {
			delete(tm.usernames, s.username)
		}
		tm.pool(tok)
	}
	sort.Slice(swept, func(i, j int) bool { return swept[i].Token < swept[j].Token })
	return swept
}

// pool inserts a token number into the reuse pool, keeping it sorted so
// NewToken can take the smallest. Callers hold the lock.
func (tm *TokenManager) pool(tok Token) {
	i := sort.Search(len(tm.recycled), func(i int) bool { return tm.recycled[i] >= tok })
	tm.recycled = append(tm.recycled, 0)
	copy(tm.recycled[i+1:], tm.recycled[i:])
	tm.recycled[i] = tok
}

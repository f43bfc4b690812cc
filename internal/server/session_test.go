package server

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/feltpoker/felt/internal/protocol"
)

func TestClientTokensStartAtTwo(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	if tok := tm.NewToken(); tok != 2 {
		t.Fatalf("Expected first token 2, got %d", tok)
	}
	if tok := tm.NewToken(); tok != 3 {
		t.Fatalf("Expected second token 3, got %d", tok)
	}
}

func TestAssociateUsernameBindsBothWays(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))
	tok := tm.NewToken()

	if cerr := tm.AssociateUsername(tok, "alice"); cerr != nil {
		t.Fatalf("Expected associate to succeed, got %v", cerr)
	}
	if name, ok := tm.Username(tok); !ok || name != "alice" {
		t.Fatalf("Expected username alice, got %q (ok=%v)", name, ok)
	}
	if back, ok := tm.TokenFor("alice"); !ok || back != tok {
		t.Fatalf("Expected token %d for alice, got %d (ok=%v)", tok, back, ok)
	}

	// The token already carries a name.
	if cerr := tm.AssociateUsername(tok, "bob"); cerr == nil || cerr.Kind != protocol.ErrAlreadyAssociated {
		t.Fatalf("Expected already_associated for renamed token, got %v", cerr)
	}

	// The name already belongs to a live token.
	other := tm.NewToken()
	if cerr := tm.AssociateUsername(other, "alice"); cerr == nil || cerr.Kind != protocol.ErrAlreadyAssociated {
		t.Fatalf("Expected already_associated for taken name, got %v", cerr)
	}
}

func TestAssociateUnknownAndExpiredTokens(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	if cerr := tm.AssociateUsername(99, "alice"); cerr == nil || cerr.Kind != protocol.ErrDoesNotExist {
		t.Fatalf("Expected does_not_exist for never-issued token, got %v", cerr)
	}
	if cerr := tm.AssociateUsername(TokenListener, "alice"); cerr == nil || cerr.Kind != protocol.ErrDoesNotExist {
		t.Fatalf("Expected does_not_exist for reserved token, got %v", cerr)
	}

	tok := tm.NewToken()
	tm.Recycle(tok)
	if cerr := tm.AssociateUsername(tok, "alice"); cerr == nil || cerr.Kind != protocol.ErrExpired {
		t.Fatalf("Expected expired for recycled token, got %v", cerr)
	}
}

func TestRecycleReusesSmallestNumberFirst(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	a := tm.NewToken() // 2
	b := tm.NewToken() // 3
	c := tm.NewToken() // 4
	_ = c

	tm.Recycle(b)
	tm.Recycle(a)

	if tok := tm.NewToken(); tok != a {
		t.Fatalf("Expected recycled token %d first, got %d", a, tok)
	}
	if tok := tm.NewToken(); tok != b {
		t.Fatalf("Expected recycled token %d next, got %d", b, tok)
	}
	if tok := tm.NewToken(); tok != 5 {
		t.Fatalf("Expected fresh token 5 after pool drained, got %d", tok)
	}
}

func TestRecycleReleasesUsername(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	tok := tm.NewToken()
	if cerr := tm.AssociateUsername(tok, "alice"); cerr != nil {
		t.Fatalf("Expected associate to succeed, got %v", cerr)
	}
	tm.Recycle(tok)

	if _, ok := tm.TokenFor("alice"); ok {
		t.Fatal("Expected alice's binding to be gone after recycle")
	}

	// The name is free for a new connection.
	next := tm.NewToken()
	if cerr := tm.AssociateUsername(next, "alice"); cerr != nil {
		t.Fatalf("Expected alice to be reusable, got %v", cerr)
	}
}

func TestRecycleIdempotent(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	a := tm.NewToken() // 2
	tm.Recycle(a)
	tm.Recycle(a)

	// Double recycle must not pool the number twice.
	if tok := tm.NewToken(); tok != a {
		t.Fatalf("Expected token %d from pool, got %d", a, tok)
	}
	if tok := tm.NewToken(); tok != 3 {
		t.Fatalf("Expected fresh token 3, got %d", tok)
	}
}

func TestSweepExpiredReturnsEachTokenOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	tm := NewTokenManager(mockClock)

	anon := tm.NewToken()
	named := tm.NewToken()
	if cerr := tm.AssociateUsername(named, "bob"); cerr != nil {
		t.Fatalf("Expected associate to succeed, got %v", cerr)
	}

	mockClock.Advance(11 * time.Second).MustWait(ctx)

	swept := tm.SweepExpired(10 * time.Second)
	if len(swept) != 2 {
		t.Fatalf("Expected 2 swept tokens, got %d", len(swept))
	}
	if swept[0].Token != anon || swept[0].Username != "" {
		t.Fatalf("Expected anonymous token %d first, got %+v", anon, swept[0])
	}
	if swept[1].Token != named || swept[1].Username != "bob" {
		t.Fatalf("Expected bob's token %d second, got %+v", named, swept[1])
	}

	// A second sweep finds nothing, and the swept tokens read as
	// expired from here on.
	if again := tm.SweepExpired(10 * time.Second); len(again) != 0 {
		t.Fatalf("Expected empty second sweep, got %d tokens", len(again))
	}
	if cerr := tm.AssociateUsername(named, "bob"); cerr == nil || cerr.Kind != protocol.ErrExpired {
		t.Fatalf("Expected expired after sweep, got %v", cerr)
	}
	if _, ok := tm.TokenFor("bob"); ok {
		t.Fatal("Expected bob's binding to be gone after sweep")
	}
}

func TestSweepSparesConfirmedAndFreshTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mockClock := quartz.NewMock(t)
	tm := NewTokenManager(mockClock)

	confirmed := tm.NewToken()
	if cerr := tm.AssociateUsername(confirmed, "alice"); cerr != nil {
		t.Fatalf("Expected associate to succeed, got %v", cerr)
	}
	if cerr := tm.Confirm(confirmed); cerr != nil {
		t.Fatalf("Expected confirm to succeed, got %v", cerr)
	}

	mockClock.Advance(9 * time.Second).MustWait(ctx)
	fresh := tm.NewToken()
	mockClock.Advance(2 * time.Second).MustWait(ctx)

	// confirmed is over age but handshaken; fresh is only 2s old.
	if swept := tm.SweepExpired(10 * time.Second); len(swept) != 0 {
		t.Fatalf("Expected no sweeps, got %d", len(swept))
	}
	if !tm.Confirmed(confirmed) {
		t.Fatal("Expected alice to stay confirmed")
	}
	if name, ok := tm.Username(confirmed); !ok || name != "alice" {
		t.Fatalf("Expected alice still bound, got %q (ok=%v)", name, ok)
	}

	// Nine more seconds age the fresh token past the limit.
	mockClock.Advance(9 * time.Second).MustWait(ctx)
	swept := tm.SweepExpired(10 * time.Second)
	if len(swept) != 1 || swept[0].Token != fresh {
		t.Fatalf("Expected only the fresh token swept, got %+v", swept)
	}
}

func TestConfirmUnknownToken(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager(quartz.NewMock(t))

	if cerr := tm.Confirm(42); cerr == nil || cerr.Kind != protocol.ErrDoesNotExist {
		t.Fatalf("Expected does_not_exist, got %v", cerr)
	}
}

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, ttl), mr
}

// ---------------------------------------------------------------------------
// Issue
// ---------------------------------------------------------------------------

func TestIssue_GeneratesSixDigitCode(t *testing.T) {
	s, _ := newTestStore(t, 0)

	code, err := s.Issue(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code %q has %d digits, want 6", code, len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("code %q contains non-digit %q", code, r)
		}
	}
}

func TestIssue_SetsTTL(t *testing.T) {
	s, mr := newTestStore(t, 5*time.Minute)

	if _, err := s.Issue(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ttl := mr.TTL("verification:code:a@b.com")
	if ttl != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", ttl)
	}
}

func TestIssue_ReplacesOutstandingCode(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	first, err := s.Issue(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Issue #1: %v", err)
	}
	second, err := s.Issue(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Issue #2: %v", err)
	}

	if first != second {
		ok, err := s.Verify(ctx, "a@b.com", first)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if ok {
			t.Error("superseded code still verified")
		}
	}
	ok, err := s.Verify(ctx, "a@b.com", second)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("latest code did not verify")
	}
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func TestVerify_ConsumesCorrectCode(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	code, err := s.Issue(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ok, err := s.Verify(ctx, "a@b.com", code)
	if err != nil || !ok {
		t.Fatalf("first Verify = (%v, %v), want (true, nil)", ok, err)
	}

	// Single use: the same code must not verify twice.
	ok, err = s.Verify(ctx, "a@b.com", code)
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if ok {
		t.Error("code verified twice")
	}
}

func TestVerify_WrongCodeDoesNotConsume(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	code, err := s.Issue(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ok, err := s.Verify(ctx, "a@b.com", "000000")
	if err != nil {
		t.Fatalf("Verify wrong: %v", err)
	}
	if ok && code != "000000" {
		t.Fatal("wrong code verified")
	}

	// The stored code survives a wrong guess.
	ok, err = s.Verify(ctx, "a@b.com", code)
	if err != nil || !ok {
		t.Errorf("correct code after wrong guess = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestVerify_UnknownSubject(t *testing.T) {
	s, _ := newTestStore(t, 0)

	ok, err := s.Verify(context.Background(), "nobody@b.com", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("verified against absent code")
	}
}

func TestVerify_ExpiredCode(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	code, err := s.Issue(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ok, err := s.Verify(ctx, "a@b.com", code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("expired code verified")
	}
}

package claim

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	won      bool
	err      error
	lastArgs []any
}

func (f *fakeStore) ClaimRun(_ context.Context, jobID string, minuteUTC time.Time, claimant string, orderValue, position int) (bool, error) {
	f.lastArgs = []any{jobID, minuteUTC, claimant, orderValue, position}
	return f.won, f.err
}

func TestClaim_ReturnsWonFromStore(t *testing.T) {
	store := &fakeStore{won: true}
	c := New(store)

	won, err := c.Claim(context.Background(), "job-1", time.Now(), "machine-a", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatal("expected claim to be won")
	}
}

func TestClaim_LostIsNotAnError(t *testing.T) {
	store := &fakeStore{won: false}
	c := New(store)

	won, err := c.Claim(context.Background(), "job-1", time.Now(), "machine-b", 1, 2)
	if err != nil {
		t.Fatalf("expected losing a claim to be error-free, got %v", err)
	}
	if won {
		t.Fatal("expected claim to be lost")
	}
}

func TestClaim_PropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	c := New(store)

	_, err := c.Claim(context.Background(), "job-1", time.Now(), "machine-c", 1, 1)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}

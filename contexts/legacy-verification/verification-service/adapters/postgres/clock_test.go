package postgresadapter

import (
	"context"
	"testing"
	"time"
)

func TestSystemClockTracksWallTime(t *testing.T) {
	before := time.Now()
	got := SystemClock{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v within [%v, %v]", got, before, after)
	}
}

func TestUUIDGeneratorProducesDistinctIDs(t *testing.T) {
	gen := UUIDGenerator{}
	first, err := gen.NewID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gen.NewID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" || second == "" {
		t.Fatal("expected non-empty ids")
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
}

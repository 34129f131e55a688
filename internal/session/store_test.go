package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, 30*time.Minute), mr
}

func TestReassemblyInOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	parts := []string{"alpha ", "beta ", "gamma"}
	for i, p := range parts {
		progress, err := store.AddPart(ctx, "s1", i+1, 3, p, nil)
		if err != nil {
			t.Fatalf("part %d: %v", i+1, err)
		}
		if progress.Received != i+1 {
			t.Errorf("expected %d received, got %d", i+1, progress.Received)
		}
	}

	doc, _, err := store.Assemble(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if doc != "alpha beta gamma" {
		t.Errorf("unexpected document: %q", doc)
	}

	// Assembling destroys the session.
	if _, _, err := store.Assemble(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after assembly, got %v", err)
	}
}

func TestReassemblyAnyArrivalOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	parts := []string{"one ", "two ", "three ", "four"}
	want := "one two three four"

	for trial := 0; trial < 5; trial++ {
		order := rand.Perm(len(parts))
		id := "perm" + string(rune('a'+trial))
		for _, i := range order {
			if _, err := store.AddPart(ctx, id, i+1, len(parts), parts[i], nil); err != nil {
				t.Fatalf("part %d: %v", i+1, err)
			}
		}
		doc, _, err := store.Assemble(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if doc != want {
			t.Errorf("order %v: got %q, want %q", order, doc, want)
		}
	}
}

func TestIdempotentRedelivery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s2", 1, 2, "hello ", nil); err != nil {
		t.Fatal(err)
	}
	progress, err := store.AddPart(ctx, "s2", 1, 2, "hello ", nil)
	if err != nil {
		t.Fatalf("identical redelivery should be a no-op: %v", err)
	}
	if progress.Received != 1 {
		t.Errorf("expected 1 received after redelivery, got %d", progress.Received)
	}

	if _, err := store.AddPart(ctx, "s2", 2, 2, "world", nil); err != nil {
		t.Fatal(err)
	}
	doc, _, err := store.Assemble(ctx, "s2")
	if err != nil {
		t.Fatal(err)
	}
	if doc != "hello world" {
		t.Errorf("unexpected document: %q", doc)
	}
}

func TestConflictingRedelivery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s3", 1, 2, "original", nil); err != nil {
		t.Fatal(err)
	}
	_, err := store.AddPart(ctx, "s3", 1, 2, "tampered", nil)
	if !errors.Is(err, ErrPartConflict) {
		t.Errorf("expected ErrPartConflict, got %v", err)
	}
}

func TestMetadataFirstPartOnly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Part 2 arrives first carrying metadata; it must be ignored.
	if _, err := store.AddPart(ctx, "s4", 2, 2, "tail", map[string]any{"title": "wrong"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddPart(ctx, "s4", 1, 2, "head ", map[string]any{"title": "right"}); err != nil {
		t.Fatal(err)
	}

	doc, meta, err := store.Assemble(ctx, "s4")
	if err != nil {
		t.Fatal(err)
	}
	if doc != "head tail" {
		t.Errorf("unexpected document: %q", doc)
	}
	if meta["title"] != "right" {
		t.Errorf("expected metadata from part 1, got %v", meta)
	}
}

func TestSparseAssembly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s5", 1, 3, "only ", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddPart(ctx, "s5", 3, 3, "ends", nil); err != nil {
		t.Fatal(err)
	}

	doc, _, err := store.Assemble(ctx, "s5")
	if err != nil {
		t.Fatal(err)
	}
	if doc != "only ends" {
		t.Errorf("unexpected sparse document: %q", doc)
	}
}

func TestTotalPartsMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s6", 1, 3, "a", nil); err != nil {
		t.Fatal(err)
	}
	_, err := store.AddPart(ctx, "s6", 2, 5, "b", nil)
	if !errors.Is(err, ErrTotalPartsMismatch) {
		t.Errorf("expected ErrTotalPartsMismatch, got %v", err)
	}
}

func TestPartNumberOutOfRange(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s7", 0, 3, "a", nil); err == nil {
		t.Error("expected error for part number 0")
	}
	if _, err := store.AddPart(ctx, "s7", 4, 3, "a", nil); err == nil {
		t.Error("expected error for part number beyond totalParts")
	}
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddPart(ctx, "s8", 1, 2, "gone", nil); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(31 * time.Minute)

	if _, _, err := store.Assemble(ctx, "s8"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after TTL, got %v", err)
	}
}

package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, found, _ := m.Get(ctx, "k"); !found {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, found, _ := m.Get(ctx, "k"); found {
		t.Fatal("expected miss after expiry")
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry not evicted, len=%d", m.Len())
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, found, _ := m.Get(ctx, "k"); !found {
		t.Fatal("expected zero-ttl entry to survive")
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	original := []byte("immutable")
	if err := m.Set(ctx, "k", original, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	original[0] = 'X'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "immutable" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}

	got[0] = 'Y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "immutable" {
		t.Fatalf("returned value aliased cache slice: %q", again)
	}
}

func TestKeyShapes(t *testing.T) {
	t.Parallel()

	hash := HashBytes([]byte("audio"))
	if TranscriptKey(hash, "en") != "cbvoice:asr:"+hash+":en" {
		t.Fatalf("unexpected transcript key: %s", TranscriptKey(hash, "en"))
	}

	// Target order must not affect the pipeline key.
	a := PipelineKey(hash, "en", []string{"zh", "es"})
	b := PipelineKey(hash, "en", []string{"es", "zh"})
	if a != b {
		t.Fatalf("pipeline key depends on target order: %s vs %s", a, b)
	}
}

func TestHashTextTrims(t *testing.T) {
	t.Parallel()

	if HashText("  hello  ") != HashText("hello") {
		t.Fatal("expected trimmed inputs to share a hash")
	}
	if HashText("hello") == HashText("world") {
		t.Fatal("distinct inputs must not collide")
	}
}

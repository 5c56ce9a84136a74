package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndParseable(t *testing.T) {
	a := New()
	b := New()
	if a >= b {
		t.Fatalf("expected monotonic ids, got %s then %s", a, b)
	}
	ts, ok := Time(a)
	if !ok {
		t.Fatalf("expected %s to parse", a)
	}
	if time.Since(ts) > time.Minute {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if _, ok := Time("not-a-ulid"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestOpaqueUnique(t *testing.T) {
	if Opaque() == Opaque() {
		t.Fatalf("expected distinct opaque ids")
	}
}

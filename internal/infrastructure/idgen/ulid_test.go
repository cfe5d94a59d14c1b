package idgen

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorMonotonicWithinMillisecond(t *testing.T) {
	g := NewULIDGenerator()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestULIDGeneratorParses(t *testing.T) {
	id := NewULIDGenerator().Generate()
	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if time.Since(ulid.Time(parsed.Time())) > time.Minute {
		t.Fatalf("unexpected timestamp in %s", id)
	}
}

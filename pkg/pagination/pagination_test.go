package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -5: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d)=%d want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{At: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.At.Equal(c.At) || parsed.ID != c.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, c)
	}

	empty, err := ParseCursor("  ")
	if err != nil || empty != nil {
		t.Fatalf("blank cursor should be nil, got %v err=%v", empty, err)
	}
	if _, err := ParseCursor("not-base64!"); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
	if _, err := ParseCursor(base64.RawURLEncoding.EncodeToString([]byte("no-separator"))); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

type row struct {
	id      uuid.UUID
	created time.Time
}

func TestBuildPage(t *testing.T) {
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{At: r.created, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	next, err := ParseCursor(page.NextCursor)
	if err != nil || next.ID != rows[1].id {
		t.Fatalf("expected cursor at second row, got %+v err=%v", next, err)
	}

	last := BuildPage(rows[:2], 2, cursorOf)
	if last.NextCursor != "" {
		t.Fatalf("expected no next cursor on final page")
	}
}

func TestCursorBefore(t *testing.T) {
	c := Cursor{At: time.Unix(0, 0).UTC(), ID: uuid.New()}
	clause, args := c.Before("updated_at")
	if !strings.Contains(clause, "updated_at < ?") || strings.Count(clause, "?") != len(args) {
		t.Fatalf("unexpected clause %q with %d args", clause, len(args))
	}
	if args[2] != c.ID {
		t.Fatalf("expected id as last arg, got %v", args[2])
	}
}

func TestEncodeCursorIsURLSafe(t *testing.T) {
	for i := 0; i < 50; i++ {
		token := EncodeCursor(Cursor{At: time.Now(), ID: uuid.New()})
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token %q is not URL safe", token)
		}
	}
}

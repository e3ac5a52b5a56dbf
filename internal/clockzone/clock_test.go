package clockzone

import (
	"testing"
	"time"
)

func TestNew_NamedZone(t *testing.T) {
	c := New("Asia/Seoul", nil)
	if c.Location().String() != "Asia/Seoul" {
		t.Fatalf("expected Asia/Seoul, got %s", c.Location())
	}
}

func TestNew_UnknownZoneFallsBack(t *testing.T) {
	c := New("Not/AZone", nil)
	if c.Location() == nil {
		t.Fatal("expected a non-nil fallback location")
	}
}

func TestToUTCMinute_TruncatesSecondsAndMicros(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	local := time.Date(2026, 7, 30, 10, 15, 42, 123456000, loc)
	got := ToUTCMinute(local)
	want := time.Date(2026, 7, 30, 1, 15, 0, 0, time.UTC) // KST = UTC+9
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
}

func TestLocalMinute_KeepsZone(t *testing.T) {
	loc := time.FixedZone("TEST", 3600)
	local := time.Date(2026, 7, 30, 10, 15, 42, 0, loc)
	got := LocalMinute(local)
	if got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected zeroed seconds/nanos, got %v", got)
	}
	if got.Location() != loc {
		t.Fatalf("expected same zone, got %v", got.Location())
	}
}

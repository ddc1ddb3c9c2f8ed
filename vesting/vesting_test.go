package vesting

import (
	"testing"
	"time"

	"github.com/xraph/raise/types"
)

var (
	firstRelease  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	secondRelease = firstRelease.AddDate(0, 1, 0)
	chunkInterval = 30 * 24 * time.Hour
)

// testSchedule releases 10% initially, then 15% per 30-day chunk.
func testSchedule(t *testing.T) Schedule {
	t.Helper()
	s, err := NewSchedule(firstRelease, secondRelease, chunkInterval, 1000, 1500, 10000)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	return s
}

func TestNewScheduleValidation(t *testing.T) {
	tests := []struct {
		name     string
		first    time.Time
		second   time.Time
		interval time.Duration
		initial  uint64
		chunk    uint64
		scale    uint64
	}{
		{"zero scale", firstRelease, secondRelease, chunkInterval, 10, 15, 0},
		{"zero chunk", firstRelease, secondRelease, chunkInterval, 10, 0, 100},
		{"initial over one", firstRelease, secondRelease, chunkInterval, 101, 15, 100},
		{"zero interval", firstRelease, secondRelease, 0, 10, 15, 100},
		{"inverted releases", secondRelease, firstRelease, chunkInterval, 10, 15, 100},
		{"equal releases", firstRelease, firstRelease, chunkInterval, 10, 15, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchedule(tt.first, tt.second, tt.interval, tt.initial, tt.chunk, tt.scale); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMaxChunkDerivation(t *testing.T) {
	tests := []struct {
		name    string
		initial uint64
		chunk   uint64
		want    uint64
	}{
		{"exact division", 1000, 1500, 7},  // (10000-1000)/1500 = 6 chunks
		{"with remainder", 1000, 2000, 6},  // ceil(9000/2000) = 5 chunks
		{"full initial", 10000, 1500, 1},   // nothing left to vest
		{"tiny chunks", 0, 1, 10001},       // one basis point per chunk
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchedule(firstRelease, secondRelease, chunkInterval, tt.initial, tt.chunk, 10000)
			if err != nil {
				t.Fatalf("NewSchedule: %v", err)
			}
			if s.MaxChunk != tt.want {
				t.Errorf("MaxChunk: got %d, want %d", s.MaxChunk, tt.want)
			}
		})
	}
}

func TestChunkAt(t *testing.T) {
	s := testSchedule(t) // MaxChunk == 7

	tests := []struct {
		name string
		now  time.Time
		want uint64
	}{
		{"before first release", firstRelease.Add(-time.Second), 0},
		{"at first release", firstRelease, 1},
		{"just before second release", secondRelease.Add(-time.Second), 1},
		{"at second release", secondRelease, 2},
		{"mid chunk", secondRelease.Add(chunkInterval / 2), 2},
		{"one interval later", secondRelease.Add(chunkInterval), 3},
		{"two intervals later", secondRelease.Add(2 * chunkInterval), 4},
		{"saturates at max", secondRelease.Add(100 * chunkInterval), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ChunkAt(tt.now); got != tt.want {
				t.Errorf("ChunkAt(%s): got %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}

func TestChunkAtMonotonic(t *testing.T) {
	s := testSchedule(t)

	var prev uint64
	for at := firstRelease.AddDate(0, -1, 0); at.Before(secondRelease.Add(10 * chunkInterval)); at = at.Add(24 * time.Hour) {
		got := s.ChunkAt(at)
		if got < prev {
			t.Fatalf("chunk decreased from %d to %d at %s", prev, got, at)
		}
		prev = got
	}
}

func TestPendingWalk(t *testing.T) {
	s := testSchedule(t)

	acct := NewAccount("alice")
	acct.Entitlement = types.NewAmount(1000)
	acct.InitialShare = s.InitialShare(acct.Entitlement)

	tests := []struct {
		name  string
		chunk uint64
		want  uint64
	}{
		{"before first release", 0, 0},
		{"first release", 1, 100},
		{"second release", 2, 250},
		{"third chunk", 3, 400},
		{"saturated", 7, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := acct.PendingAt(s, tt.chunk)
			if got.Uint64() != tt.want {
				t.Errorf("PendingAt(%d): got %s, want %d", tt.chunk, got, tt.want)
			}
		})
	}
}

func TestPendingAfterClaim(t *testing.T) {
	s := testSchedule(t)

	acct := NewAccount("alice")
	acct.Entitlement = types.NewAmount(1000)
	acct.InitialShare = s.InitialShare(acct.Entitlement)

	// Claim everything pending at chunk 2.
	pending := acct.PendingAt(s, 2)
	acct.Claimed = acct.Claimed.Add(pending)
	acct.LastChunk = 2

	if got := acct.PendingAt(s, 2); !got.IsZero() {
		t.Errorf("pending after settlement: got %s, want 0", got)
	}
	if got := acct.PendingAt(s, 3); got.Uint64() != 150 {
		t.Errorf("pending at next chunk: got %s, want 150", got)
	}
}

func TestCatchUp(t *testing.T) {
	s := testSchedule(t)

	tests := []struct {
		name      string
		lastChunk uint64
		grant     uint64
		want      uint64
	}{
		{"claimed through chunk 1", 1, 500, 50},
		{"claimed through chunk 2", 2, 500, 125},
		{"claimed through chunk 4", 4, 500, 275},
		{"capped at grant", 7, 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.CatchUp(tt.lastChunk, types.NewAmount(tt.grant))
			if got.Uint64() != tt.want {
				t.Errorf("CatchUp(%d, %d): got %s, want %d", tt.lastChunk, tt.grant, got, tt.want)
			}
		})
	}
}

func TestPendingNeverExceedsRemainder(t *testing.T) {
	s := testSchedule(t)

	acct := NewAccount("alice")
	acct.Entitlement = types.NewAmount(1000)
	acct.InitialShare = s.InitialShare(acct.Entitlement)

	for chunk := uint64(0); chunk <= s.MaxChunk; chunk++ {
		pending := acct.PendingAt(s, chunk)
		remainder := acct.Entitlement.Sub(acct.Claimed)
		if pending.GreaterThan(remainder) {
			t.Fatalf("chunk %d: pending %s exceeds remainder %s", chunk, pending, remainder)
		}
		acct.Claimed = acct.Claimed.Add(pending)
	}

	if !acct.Claimed.Equal(acct.Entitlement) {
		t.Errorf("full walk claimed %s of %s", acct.Claimed, acct.Entitlement)
	}
}

// Package vesting implements the time-chunked release schedule and the
// per-beneficiary vesting accounts of a Raise campaign.
//
// Time maps to a discrete chunk number: chunk 0 before the first release,
// chunk 1 between first and second release, and one further chunk per
// elapsed interval after that, saturating once the whole entitlement is
// releasable. All release fractions are expressed as numerator/Scale
// integer fractions; there is no floating point anywhere.
package vesting

import (
	"fmt"
	"time"

	"github.com/xraph/raise/types"
)

// Schedule is the immutable release timetable shared by every beneficiary
// of a campaign.
type Schedule struct {
	// FirstRelease is when the initial share becomes claimable (chunk 1).
	FirstRelease time.Time `json:"first_release"`

	// SecondRelease is when periodic chunks begin (chunk 2).
	SecondRelease time.Time `json:"second_release"`

	// ChunkInterval is the wall-clock length of each chunk after the second
	// release.
	ChunkInterval time.Duration `json:"chunk_interval"`

	// InitialNum is the numerator of the initial-release fraction.
	InitialNum uint64 `json:"initial_num"`

	// ChunkNum is the numerator of the per-chunk release fraction.
	ChunkNum uint64 `json:"chunk_num"`

	// Scale is the denominator shared by both fractions.
	Scale uint64 `json:"scale"`

	// MaxChunk is the saturation point, derived at construction so that
	// initial + (MaxChunk-1) chunk fractions cover the full entitlement.
	MaxChunk uint64 `json:"max_chunk"`
}

// NewSchedule validates the timetable parameters and derives MaxChunk.
func NewSchedule(firstRelease, secondRelease time.Time, interval time.Duration, initialNum, chunkNum, scale uint64) (Schedule, error) {
	switch {
	case scale == 0:
		return Schedule{}, fmt.Errorf("vesting: zero scale")
	case chunkNum == 0:
		return Schedule{}, fmt.Errorf("vesting: zero chunk fraction")
	case initialNum > scale:
		return Schedule{}, fmt.Errorf("vesting: initial fraction %d/%d exceeds one", initialNum, scale)
	case interval <= 0:
		return Schedule{}, fmt.Errorf("vesting: non-positive chunk interval %s", interval)
	case !secondRelease.After(firstRelease):
		return Schedule{}, fmt.Errorf("vesting: second release %s not after first release %s", secondRelease, firstRelease)
	}

	remaining := scale - initialNum
	maxChunk := remaining/chunkNum + 1
	if remaining%chunkNum != 0 {
		maxChunk++
	}

	return Schedule{
		FirstRelease:  firstRelease,
		SecondRelease: secondRelease,
		ChunkInterval: interval,
		InitialNum:    initialNum,
		ChunkNum:      chunkNum,
		Scale:         scale,
		MaxChunk:      maxChunk,
	}, nil
}

// ChunkAt maps a point in time to its chunk number. The result is
// non-decreasing in time and never exceeds MaxChunk.
func (s Schedule) ChunkAt(now time.Time) uint64 {
	if now.Before(s.FirstRelease) {
		return 0
	}
	if now.Before(s.SecondRelease) {
		return min(1, s.MaxChunk)
	}
	if s.MaxChunk <= 2 {
		return s.MaxChunk
	}

	elapsed := uint64(now.Sub(s.SecondRelease) / s.ChunkInterval)
	if elapsed > s.MaxChunk-2 {
		elapsed = s.MaxChunk - 2
	}
	return 2 + elapsed
}

// InitialShare returns the portion of a grant releasable at the first
// release, floored.
func (s Schedule) InitialShare(grant types.Amount) types.Amount {
	return grant.ScaleBy(s.InitialNum, s.Scale)
}

// ChunkShare returns the portion of amount released by the given count of
// completed chunks, floored.
func (s Schedule) ChunkShare(chunks uint64, amount types.Amount) types.Amount {
	if chunks == 0 {
		return types.ZeroAmount
	}
	return amount.ScaleBy(chunks*s.ChunkNum, s.Scale)
}

// CatchUp returns the immediately releasable portion of a new grant for a
// beneficiary who has already settled claims up to lastChunk, capped at the
// grant itself. It keeps a late grant pro-rata with an equivalent early one.
func (s Schedule) CatchUp(lastChunk uint64, grant types.Amount) types.Amount {
	if lastChunk == 0 {
		return types.ZeroAmount
	}
	due := s.InitialShare(grant).Add(s.ChunkShare(lastChunk-1, grant))
	return due.Min(grant)
}

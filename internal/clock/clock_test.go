package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockReportsWallTime(t *testing.T) {
	before := time.Now()
	got := Real().Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestFakeClockAdvancesOnlyWhenTold(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	f.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), f.Now())
}

func TestFakeClockSleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Sleep(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), f.Now())
}

func TestFakeClockAfterFiresImmediatelyAtAdvancedTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(time.Minute)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(time.Minute), got)
	default:
		t.Fatal("expected After to deliver without blocking once advanced")
	}
	assert.Equal(t, start.Add(time.Minute), f.Now())
}

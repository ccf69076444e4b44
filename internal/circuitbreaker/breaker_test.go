package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)}
	return New(threshold, time.Minute).WithClock(clock.now), clock
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)

	assert.True(t, b.Allow("audit_store"))
	b.RecordFailure("audit_store")
	b.RecordFailure("audit_store")
	assert.True(t, b.Allow("audit_store"), "below threshold")

	b.RecordFailure("audit_store")
	assert.False(t, b.Allow("audit_store"))
	assert.Equal(t, StateOpen, b.State("audit_store"))
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(2)
	b.RecordFailure("db")
	b.RecordFailure("db")

	clock.advance(59 * time.Second)
	assert.False(t, b.Allow("db"), "still open")

	clock.advance(time.Second)
	assert.True(t, b.Allow("db"), "probe admitted")
	assert.Equal(t, StateHalfOpen, b.State("db"))
	assert.False(t, b.Allow("db"), "only one probe")
}

func TestBreaker_HalfOpenOutcome(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		b, clock := newTestBreaker(2)
		b.RecordFailure("db")
		b.RecordFailure("db")
		clock.advance(time.Minute)
		require.True(t, b.Allow("db"))

		b.RecordSuccess("db")
		assert.Equal(t, StateClosed, b.State("db"))
		assert.True(t, b.Allow("db"))
	})

	t.Run("failure reopens", func(t *testing.T) {
		b, clock := newTestBreaker(2)
		b.RecordFailure("db")
		b.RecordFailure("db")
		clock.advance(time.Minute)
		require.True(t, b.Allow("db"))

		b.RecordFailure("db")
		assert.Equal(t, StateOpen, b.State("db"))
		assert.False(t, b.Allow("db"))
	})
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	b.RecordFailure("db")
	b.RecordFailure("db")
	b.RecordSuccess("db")
	b.RecordFailure("db")

	assert.True(t, b.Allow("db"))
}

func TestBreaker_IndependentKeys(t *testing.T) {
	b, _ := newTestBreaker(2)
	b.RecordFailure("audit_store")
	b.RecordFailure("audit_store")

	assert.False(t, b.Allow("audit_store"))
	assert.True(t, b.Allow("snapshot_store"))
	assert.Equal(t, StateClosed, b.State("unknown"))
}

func TestBreaker_OnTransition(t *testing.T) {
	b, clock := newTestBreaker(2)

	var seen []string
	b.OnTransition(func(key string, from, to State) {
		seen = append(seen, key+":"+from.String()+"->"+to.String())
	})

	b.RecordFailure("db")
	b.RecordFailure("db")
	clock.advance(time.Minute)
	b.Allow("db")
	b.RecordSuccess("db")

	assert.Equal(t, []string{
		"db:closed->open",
		"db:open->half_open",
		"db:half_open->closed",
	}, seen)
}

func TestNew_Defaults(t *testing.T) {
	b := New(0, 0)
	assert.Equal(t, DefaultThreshold, b.threshold)
	assert.Equal(t, DefaultOpenDuration, b.openDuration)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 15, 10, 30, 0, 123, time.UTC)
	id := "risk_abc123"

	encoded := Encode(ts, id)
	assert.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, "=")

	cursor, err := Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, ts, cursor.At)
	assert.Equal(t, id, cursor.ID)
}

func TestDecode_Empty(t *testing.T) {
	cursor, err := Decode("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecode_Invalid(t *testing.T) {
	for _, raw := range []string{
		"not-base64!!!",
		"bm9waXBl", // "nopipe"
		"eHl6fGlk", // "xyz|id"
		"MTIzfA",   // "123|"
	} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}
}

func TestCursor_After(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &Cursor{At: at, ID: "risk_5"}

	assert.True(t, c.After(at.Add(-time.Second), "risk_9"), "older item")
	assert.False(t, c.After(at.Add(time.Second), "risk_1"), "newer item")
	assert.True(t, c.After(at, "risk_4"), "same time, lower id")
	assert.False(t, c.After(at, "risk_5"), "cursor item itself")

	var none *Cursor
	assert.True(t, none.After(at, "anything"))
}

func TestComputePage(t *testing.T) {
	key := func(s string) (time.Time, string) {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), s
	}

	result, cursor, hasMore := ComputePage([]string{"a", "b", "c"}, 5, key)
	assert.Len(t, result, 3)
	assert.Empty(t, cursor)
	assert.False(t, hasMore)

	result, cursor, hasMore = ComputePage([]string{"a", "b", "c"}, 3, key)
	assert.Len(t, result, 3)
	assert.Empty(t, cursor)
	assert.False(t, hasMore)

	result, cursor, hasMore = ComputePage([]string{"a", "b", "c", "d"}, 3, key)
	assert.Equal(t, []string{"a", "b", "c"}, result)
	assert.True(t, hasMore)

	c, err := Decode(cursor)
	require.NoError(t, err)
	assert.Equal(t, "c", c.ID)
}

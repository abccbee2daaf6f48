package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SaoPauloOffset(t *testing.T) {
	r := NewResolver(-180)

	// 12:00:42 UTC = 09:00 em Brasília
	ref := r.Resolve(time.Date(2026, 10, 19, 12, 0, 42, 0, time.UTC))

	assert.Equal(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), ref.Instant)
	assert.Equal(t, "2026-10-19", ref.DateKey)
	assert.Equal(t, "09:00", ref.HHMM)
	assert.Equal(t, "Mon", ref.Weekday)
}

func TestResolve_CrossesMidnightBackwards(t *testing.T) {
	r := NewResolver(-180)

	// 01:30 UTC de terça = 22:30 de segunda no fuso de referência
	ref := r.Resolve(time.Date(2026, 10, 20, 1, 30, 0, 0, time.UTC))

	assert.Equal(t, "2026-10-19", ref.DateKey)
	assert.Equal(t, "22:30", ref.HHMM)
	assert.Equal(t, "Mon", ref.Weekday)
}

func TestResolve_IgnoresInputLocation(t *testing.T) {
	r := NewResolver(-180)
	tokyo := time.FixedZone("JST", 9*3600)

	a := r.Resolve(time.Date(2026, 10, 19, 21, 0, 0, 0, tokyo))
	b := r.Resolve(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, b, a)
}

func TestResolve_PositiveOffset(t *testing.T) {
	r := NewResolver(330)

	ref := r.Resolve(time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC))

	assert.Equal(t, "2026-10-19", ref.DateKey)
	assert.Equal(t, "01:30", ref.HHMM)
	assert.Equal(t, "Mon", ref.Weekday)
}

func TestWall(t *testing.T) {
	r := NewResolver(-180)
	assert.Equal(t, "09:00", r.Wall(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), TimeLayout))
}

func TestParseHHMM(t *testing.T) {
	v, err := ParseHHMM(" 09:00 ")
	require.NoError(t, err)
	assert.Equal(t, "09:00", v)

	for _, bad := range []string{"9am", "24:00", "12:60", ""} {
		_, err := ParseHHMM(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	v, err := ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", v)

	_, err = ParseDate("19/10/2026")
	assert.Error(t, err)
}

func TestNormalizeWeekday(t *testing.T) {
	for in, want := range map[string]string{"monday": "Mon", "Mon": "Mon", "SUN": "Sun", " Saturday ": "Sat"} {
		got, err := NormalizeWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"mo", "funday", ""} {
		_, err := NormalizeWeekday(bad)
		assert.Error(t, err, bad)
	}
}

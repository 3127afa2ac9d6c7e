package timeutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		input    string
		expected int
	}{
		{"00:00", 0},
		{"00:01", 1},
		{"09:30", 570},
		{"12:00", 720},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, tc.input)
	}
}

func TestToMinutesRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "9:30", "09:3", "24:00", "12:60", "ab:cd", "12-30", "12:30:00", "-1:00"} {
		_, err := ToMinutes(input)
		assert.Error(t, err, input)
	}
}

func TestFromMinutesRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		clock := FromMinutes(m)
		back, err := ToMinutes(clock)
		require.NoError(t, err, clock)
		require.Equal(t, m, back, clock)
	}
}

func TestFromMinutesClampsToDay(t *testing.T) {
	assert.Equal(t, "00:00", FromMinutes(-10))
	assert.Equal(t, "23:59", FromMinutes(MinutesPerDay))
	assert.Equal(t, "23:59", FromMinutes(MinutesPerDay+500))
}

func TestAddMinutesThenDuration(t *testing.T) {
	starts := []string{"00:00", "08:15", "14:00", "22:30"}
	durations := []int{15, 30, 45, 60, 89}
	for _, start := range starts {
		for _, d := range durations {
			end, err := AddMinutes(start, d)
			require.NoError(t, err)
			got, err := DurationBetween(start, end)
			require.NoError(t, err)
			assert.Equal(t, d, got, fmt.Sprintf("%s + %dm", start, d))
		}
	}
}

func TestDurationBetweenNegativeWhenInverted(t *testing.T) {
	d, err := DurationBetween("11:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, -60, d)
}

func TestParseDayBijection(t *testing.T) {
	for ordinal := Sunday; ordinal <= Saturday; ordinal++ {
		parsed, err := ParseDay(ordinal.String())
		require.NoError(t, err)
		assert.Equal(t, ordinal, parsed)
	}
}

func TestParseDayCaseInsensitive(t *testing.T) {
	parsed, err := ParseDay("  monday ")
	require.NoError(t, err)
	assert.Equal(t, Monday, parsed)
}

func TestParseDayRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{"", "Mon", "Funday", "8", "monday2"} {
		_, err := ParseDay(name)
		assert.Error(t, err, name)
	}
}

func TestDayString(t *testing.T) {
	assert.Equal(t, "Sunday", Sunday.String())
	assert.Equal(t, "Saturday", Saturday.String())
	assert.Equal(t, "Invalid", Day(7).String())
	assert.Equal(t, "Invalid", Day(-1).String())
}

func TestFormatRange(t *testing.T) {
	assert.Equal(t, "Monday 10:00-11:00", FormatRange(Monday, "10:00", "11:00"))
}

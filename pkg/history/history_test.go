package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

func TestDateOf_UsesOwnLocation(t *testing.T) {
	t.Parallel()

	// 23:30 at UTC-05:00 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	when := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)

	assert.Equal(t, history.Date("2024-03-09"), history.DateOf(when))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := history.ParseDate("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, history.Date("2023-12-31"), d)

	_, err = history.ParseDate("2023-13-01")
	require.ErrorIs(t, err, history.ErrInvalidDate)

	_, err = history.ParseDate("31/12/2023")
	require.ErrorIs(t, err, history.ErrInvalidDate)
}

func TestDate_Ordering(t *testing.T) {
	t.Parallel()

	a := history.Date("2023-01-09")
	b := history.Date("2023-01-10")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.True(t, history.Date("").IsZero())
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), b.Time())
}

func TestHistory_LastOnEmpty(t *testing.T) {
	t.Parallel()

	var h history.History

	_, ok := h.Last()
	assert.False(t, ok)
	assert.True(t, h.LastDate().IsZero())
	assert.Zero(t, h.LastLines())
}

func TestHistory_ObserveAppendsOnlyChanges(t *testing.T) {
	t.Parallel()

	var h history.History

	h, changed := h.Observe("2024-01-01", 100)
	assert.True(t, changed)

	h, changed = h.Observe("2024-01-02", 100)
	assert.False(t, changed)

	h, changed = h.Observe("2024-01-03", 150)
	assert.True(t, changed)

	assert.Equal(t, history.History{
		{Date: "2024-01-01", Lines: 100},
		{Date: "2024-01-03", Lines: 150},
	}, h)
	require.NoError(t, h.Validate())
}

func TestHistory_ObserveZeroOnEmptyIsNotStored(t *testing.T) {
	t.Parallel()

	var h history.History

	h, changed := h.Observe("2024-01-01", 0)
	assert.False(t, changed)
	assert.Empty(t, h)
}

func TestHistory_ObserveDoesNotAliasReceiver(t *testing.T) {
	t.Parallel()

	base := make(history.History, 1, 8)
	base[0] = history.Record{Date: "2024-01-01", Lines: 10}

	first, _ := base.Observe("2024-01-02", 20)
	second, _ := base.Observe("2024-01-02", 30)

	assert.Equal(t, 20, first[1].Lines)
	assert.Equal(t, 30, second[1].Lines)
	assert.Len(t, base, 1)
}

func TestHistory_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		h       history.History
		wantErr error
	}{
		{name: "empty", h: nil},
		{name: "single zero", h: history.History{{Date: "2024-01-01", Lines: 0}}},
		{
			name: "valid",
			h: history.History{
				{Date: "2024-01-01", Lines: 1},
				{Date: "2024-01-01", Lines: 2},
				{Date: "2024-02-01", Lines: 1},
			},
		},
		{
			name:    "unordered",
			h:       history.History{{Date: "2024-02-01", Lines: 1}, {Date: "2024-01-01", Lines: 2}},
			wantErr: history.ErrUnordered,
		},
		{
			name:    "redundant",
			h:       history.History{{Date: "2024-01-01", Lines: 5}, {Date: "2024-01-02", Lines: 5}},
			wantErr: history.ErrRedundant,
		},
		{
			name:    "negative",
			h:       history.History{{Date: "2024-01-01", Lines: -1}},
			wantErr: history.ErrNegative,
		},
		{
			name:    "bad date",
			h:       history.History{{Date: "yesterday", Lines: 1}},
			wantErr: history.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.h.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHistory_DatesAndValues(t *testing.T) {
	t.Parallel()

	h := history.History{{Date: "2024-01-01", Lines: 3}, {Date: "2024-06-01", Lines: 7}}

	assert.Equal(t, []int{3, 7}, h.Values())
	require.Len(t, h.Dates(), 2)
	assert.Equal(t, time.June, h.Dates()[1].Month())
	assert.Nil(t, history.History(nil).Clone())
	assert.Equal(t, h, h.Clone())
}

package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "salesdesk/internal/domain/availability"
	"salesdesk/pkg/errors"
)

func defaultSpec() domain.WindowSpec {
	return domain.WindowSpec{
		Open:      domain.ZonedTime{At: domain.LocalTime{Hour: 11}, Zone: "Asia/Jerusalem"},
		Close:     domain.ZonedTime{At: domain.LocalTime{Hour: 20}, Zone: "America/Guatemala"},
		ClosedDay: time.Sunday,
	}
}

func utcSpec(open, close int) domain.WindowSpec {
	return domain.WindowSpec{
		Open:      domain.ZonedTime{At: domain.LocalTime{Hour: open}, Zone: "UTC"},
		Close:     domain.ZonedTime{At: domain.LocalTime{Hour: close}, Zone: "UTC"},
		ClosedDay: time.Sunday,
	}
}

func mustPolicy(t *testing.T, spec domain.WindowSpec) *WindowPolicy {
	t.Helper()
	p, err := NewWindowPolicy(spec)
	require.NoError(t, err)
	return p
}

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestNewWindowPolicyConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		spec domain.WindowSpec
	}{
		{"unknown opening zone", func() domain.WindowSpec { s := defaultSpec(); s.Open.Zone = "Mars/Olympus"; return s }()},
		{"unknown closing zone", func() domain.WindowSpec { s := defaultSpec(); s.Close.Zone = "Nowhere/Town"; return s }()},
		{"empty zone", func() domain.WindowSpec { s := defaultSpec(); s.Close.Zone = ""; return s }()},
		{"hour out of range", func() domain.WindowSpec { s := defaultSpec(); s.Open.At.Hour = 24; return s }()},
		{"bad weekday", func() domain.WindowSpec { s := defaultSpec(); s.ClosedDay = 9; return s }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewWindowPolicy(tt.spec)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
		})
	}
}

func TestBoundariesDefaultWindow(t *testing.T) {
	p := mustPolicy(t, defaultSpec())

	tests := []struct {
		name      string
		date      [3]int
		wantOpen  time.Time
		wantClose time.Time
	}{
		{"winter (IST)", [3]int{2026, 1, 5}, utc(2026, 1, 5, 9, 0), utc(2026, 1, 6, 2, 0)},
		{"week before DST start", [3]int{2026, 3, 24}, utc(2026, 3, 24, 9, 0), utc(2026, 3, 25, 2, 0)},
		{"week after DST start", [3]int{2026, 3, 31}, utc(2026, 3, 31, 8, 0), utc(2026, 4, 1, 2, 0)},
		{"summer (IDT)", [3]int{2026, 6, 1}, utc(2026, 6, 1, 8, 0), utc(2026, 6, 2, 2, 0)},
		{"week after DST end", [3]int{2026, 11, 2}, utc(2026, 11, 2, 9, 0), utc(2026, 11, 3, 2, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, close := p.BoundariesOn(tt.date[0], time.Month(tt.date[1]), tt.date[2])
			assert.Equal(t, tt.wantOpen, open)
			assert.Equal(t, tt.wantClose, close)
		})
	}
}

func TestBoundariesAlwaysPositive(t *testing.T) {
	tests := []struct {
		name string
		spec domain.WindowSpec
		// local wall times are only exact when neither boundary falls in a DST gap
		exactLocal bool
	}{
		{"jerusalem to guatemala", defaultSpec(), true},
		{"both zones observe DST", domain.WindowSpec{
			Open:      domain.ZonedTime{At: domain.LocalTime{Hour: 9}, Zone: "Europe/London"},
			Close:     domain.ZonedTime{At: domain.LocalTime{Hour: 17}, Zone: "America/New_York"},
			ClosedDay: time.Sunday,
		}, true},
		{"boundaries inside DST gaps", domain.WindowSpec{
			Open:      domain.ZonedTime{At: domain.LocalTime{Hour: 2, Minute: 30}, Zone: "America/New_York"},
			Close:     domain.ZonedTime{At: domain.LocalTime{Hour: 2, Minute: 15}, Zone: "Europe/Berlin"},
			ClosedDay: time.Saturday,
		}, false},
		{"close before open in UTC", utcSpec(22, 6), true},
		{"close equals open", utcSpec(10, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPolicy(t, tt.spec)
			openLoc, err := time.LoadLocation(tt.spec.Open.Zone)
			require.NoError(t, err)
			closeLoc, err := time.LoadLocation(tt.spec.Close.Zone)
			require.NoError(t, err)

			for d := utc(2026, 1, 1, 12, 0); d.Year() == 2026; d = d.AddDate(0, 0, 1) {
				day := d.Format("2006-01-02")
				open, close := p.Boundaries(dateOf(d))

				require.True(t, close.After(open), "date %s: open %s close %s", day, open, close)
				assert.LessOrEqual(t, close.Sub(open), 48*time.Hour, "date %s", day)

				if tt.exactLocal {
					assert.Equal(t, tt.spec.Open.At.Hour, open.In(openLoc).Hour(), "open hour on %s", day)
					assert.Equal(t, tt.spec.Close.At.Hour, close.In(closeLoc).Hour(), "close hour on %s", day)
				}
			}
		})
	}
}

func TestLocate(t *testing.T) {
	p := mustPolicy(t, defaultSpec())

	t.Run("previous day's window still running", func(t *testing.T) {
		w := p.Locate(utc(2026, 6, 2, 1, 59))
		assert.True(t, w.Open)
		assert.Equal(t, time.Tuesday, w.Day)
		assert.Equal(t, utc(2026, 6, 1, 8, 0), w.OpensAt)
		assert.Equal(t, utc(2026, 6, 2, 2, 0), w.ClosesAt)
	})

	t.Run("after midnight close waits for today's open", func(t *testing.T) {
		w := p.Locate(utc(2026, 6, 2, 2, 1))
		assert.False(t, w.Open)
		assert.Equal(t, utc(2026, 6, 2, 8, 0), w.OpensAt)
	})

	t.Run("closed day points at monday", func(t *testing.T) {
		w := p.Locate(utc(2026, 6, 7, 12, 0))
		assert.True(t, w.Special)
		assert.False(t, w.Open)
		assert.Equal(t, utc(2026, 6, 8, 8, 0), w.OpensAt)
		assert.True(t, w.ClosesAt.IsZero())
	})

	t.Run("saturday late evening is already sunday in the opening zone", func(t *testing.T) {
		w := p.Locate(utc(2026, 6, 6, 21, 30))
		assert.True(t, w.Special)
		assert.Equal(t, time.Sunday, w.Day)
	})

	t.Run("monday small hours skip the closed day's window", func(t *testing.T) {
		w := p.Locate(utc(2026, 6, 8, 0, 30))
		assert.False(t, w.Open)
		assert.False(t, w.Special)
		assert.Equal(t, utc(2026, 6, 8, 8, 0), w.OpensAt)
	})

	t.Run("saturday after close skips to monday", func(t *testing.T) {
		p := mustPolicy(t, utcSpec(9, 17))
		w := p.Locate(utc(2026, 6, 6, 18, 0))
		assert.False(t, w.Open)
		assert.False(t, w.Special)
		assert.Equal(t, time.Saturday, w.Day)
		assert.Equal(t, utc(2026, 6, 8, 9, 0), w.OpensAt)
		assert.Equal(t, utc(2026, 6, 8, 17, 0), w.ClosesAt)
	})
}

package availability

import (
	"sync"
	"time"

	domain "salesdesk/internal/domain/availability"
	"salesdesk/pkg/errors"
)

// locationCache keeps loaded zones. A *time.Location carries the full transition
// table, so offsets are still resolved per instant.
var locationCache = struct {
	locations map[string]*time.Location
	mu        sync.RWMutex
}{
	locations: make(map[string]*time.Location),
}

func loadLocation(zone string) (*time.Location, error) {
	locationCache.mu.RLock()
	loc, ok := locationCache.locations[zone]
	locationCache.mu.RUnlock()
	if ok {
		return loc, nil
	}

	locationCache.mu.Lock()
	defer locationCache.mu.Unlock()

	if loc, ok := locationCache.locations[zone]; ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load time zone "+zone, err)
	}

	locationCache.locations[zone] = loc
	return loc, nil
}

// civilDate is a calendar date with no zone attached
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

// noon in UTC keeps date arithmetic clear of DST shifts
func (d civilDate) noon() time.Time {
	return time.Date(d.year, d.month, d.day, 12, 0, 0, 0, time.UTC)
}

func (d civilDate) addDays(n int) civilDate {
	return dateOf(d.noon().AddDate(0, 0, n))
}

func (d civilDate) weekday() time.Weekday {
	return d.noon().Weekday()
}

func (d civilDate) at(t domain.LocalTime, loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, t.Hour, t.Minute, 0, 0, loc).UTC()
}

// Window is the service window relevant to one instant: the one in force, or the
// next one when the service is closed.
type Window struct {
	Day      time.Weekday
	Special  bool
	Open     bool
	OpensAt  time.Time
	ClosesAt time.Time // zero on the closed day
}

// WindowPolicy computes the daily open/close boundaries in UTC
type WindowPolicy struct {
	spec     domain.WindowSpec
	openLoc  *time.Location
	closeLoc *time.Location
}

// NewWindowPolicy resolves both zones. Any problem is a configuration error.
func NewWindowPolicy(spec domain.WindowSpec) (*WindowPolicy, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	openLoc, err := loadLocation(spec.Open.Zone)
	if err != nil {
		return nil, err
	}
	closeLoc, err := loadLocation(spec.Close.Zone)
	if err != nil {
		return nil, err
	}

	return &WindowPolicy{spec: spec, openLoc: openLoc, closeLoc: closeLoc}, nil
}

// Spec returns the window definition
func (p *WindowPolicy) Spec() domain.WindowSpec {
	return p.spec
}

// Boundaries returns the window anchored to date (a calendar date in the opening
// zone). Close is always strictly after open: when the closing local time on date
// is not later than the opening instant, it is evaluated again for the following
// date in the closing zone.
func (p *WindowPolicy) Boundaries(date civilDate) (open, close time.Time) {
	open = date.at(p.spec.Open.At, p.openLoc)

	closeDate := date
	close = closeDate.at(p.spec.Close.At, p.closeLoc)
	for !close.After(open) {
		closeDate = closeDate.addDays(1)
		close = closeDate.at(p.spec.Close.At, p.closeLoc)
	}
	return open, close
}

// BoundariesOn is Boundaries for a (year, month, day) triple
func (p *WindowPolicy) BoundariesOn(year int, month time.Month, day int) (open, close time.Time) {
	return p.Boundaries(civilDate{year: year, month: month, day: day})
}

// serviceDate is the calendar date of now in the opening zone
func (p *WindowPolicy) serviceDate(now time.Time) civilDate {
	return dateOf(now.In(p.openLoc))
}

func (p *WindowPolicy) isClosedDay(d civilDate) bool {
	return d.weekday() == p.spec.ClosedDay
}

func (p *WindowPolicy) nextServiceDate(d civilDate) civilDate {
	next := d.addDays(1)
	for p.isClosedDay(next) {
		next = next.addDays(1)
	}
	return next
}

// Locate finds the window relevant to now
func (p *WindowPolicy) Locate(now time.Time) Window {
	now = now.UTC()
	today := p.serviceDate(now)
	w := Window{Day: today.weekday()}

	if p.isClosedDay(today) {
		w.Special = true
		w.OpensAt, _ = p.Boundaries(p.nextServiceDate(today))
		return w
	}

	// yesterday's window may still be running past midnight
	if prev := today.addDays(-1); !p.isClosedDay(prev) {
		open, close := p.Boundaries(prev)
		if contains(open, close, now) {
			w.Open, w.OpensAt, w.ClosesAt = true, open, close
			return w
		}
	}

	open, close := p.Boundaries(today)
	if contains(open, close, now) {
		w.Open, w.OpensAt, w.ClosesAt = true, open, close
		return w
	}
	if now.Before(open) {
		w.OpensAt, w.ClosesAt = open, close
		return w
	}

	w.OpensAt, w.ClosesAt = p.Boundaries(p.nextServiceDate(today))
	return w
}

func contains(open, close, now time.Time) bool {
	return !now.Before(open) && now.Before(close)
}

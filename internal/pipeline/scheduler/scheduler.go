package scheduler

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
)

const (
	// minGap is the spacing invariant: no two scheduled sends may ever be
	// within this distance of each other.
	minGap = 15 * time.Minute

	// maxRollIterations caps the roll-forward loop so pathological holiday
	// configurations surface an error instead of looping.
	maxRollIterations = 30

	// maxSpacingPasses caps re-scanning the existing schedule after a push.
	maxSpacingPasses = 50

	startJitterMinutes   = 30
	spacingJitterMinutes = 5
)

var ErrCannotSchedule = errors.New("no valid send slot within the iteration budget")

// Config carries the calendar rules for one scheduling decision. It is built
// fresh from settings at every invocation; the scheduler holds no state
// beyond its random source.
type Config struct {
	Location    *time.Location
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Holidays    map[string]struct{}
}

// ConfigFromSettings parses the stored settings into calendar rules. The
// timezone is the CEO's IANA zone; all business-hour and holiday checks
// happen there.
func ConfigFromSettings(s *settingsdomain.Settings) (Config, error) {
	loc, err := time.LoadLocation(s.CEOTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ceo timezone %q: %w", s.CEOTimezone, err)
	}

	startH, startM, err := parseClock(s.BusinessHoursStart)
	if err != nil {
		return Config{}, fmt.Errorf("invalid business_hours_start: %w", err)
	}
	endH, endM, err := parseClock(s.BusinessHoursEnd)
	if err != nil {
		return Config{}, fmt.Errorf("invalid business_hours_end: %w", err)
	}

	holidays := make(map[string]struct{})
	for _, day := range s.HolidayList() {
		holidays[day] = struct{}{}
	}

	return Config{
		Location:    loc,
		StartHour:   startH,
		StartMinute: startM,
		EndHour:     endH,
		EndMinute:   endM,
		Holidays:    holidays,
	}, nil
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", value)
	}
	return hour, minute, nil
}

// Scheduler computes plausible human send times. The random source is
// injected so tests can pin it.
type Scheduler struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{rng: rng}
}

// PlanAfterTrigger schedules a reply to an email received at receivedAt,
// delayed by a uniform draw from the trigger's reply window.
func (s *Scheduler) PlanAfterTrigger(receivedAt time.Time, minHours, maxHours float64, cfg Config, existing []time.Time) (time.Time, error) {
	offsetHours := minHours + s.rng.Float64()*(maxHours-minHours)
	candidate := receivedAt.In(cfg.Location).Add(time.Duration(offsetHours * float64(time.Hour)))
	return s.finalize(candidate, cfg, existing)
}

// PlanAfterApproval schedules a send shortly after a human approval whose
// original slot has already lapsed: 2-10 minutes from now.
func (s *Scheduler) PlanAfterApproval(now time.Time, cfg Config, existing []time.Time) (time.Time, error) {
	offsetMinutes := 2 + s.rng.Float64()*8
	candidate := now.In(cfg.Location).Add(time.Duration(offsetMinutes * float64(time.Minute)))
	return s.finalize(candidate, cfg, existing)
}

func (s *Scheduler) finalize(candidate time.Time, cfg Config, existing []time.Time) (time.Time, error) {
	rolled, err := s.rollToBusinessHours(candidate, cfg)
	if err != nil {
		return time.Time{}, err
	}
	return s.space(rolled, cfg, existing)
}

// rollToBusinessHours advances a candidate past weekends, holidays and
// off-hours until it lands inside the business window, with a small jitter
// so rolled sends do not all pile up at opening time.
func (s *Scheduler) rollToBusinessHours(t time.Time, cfg Config) (time.Time, error) {
	result := t.In(cfg.Location)

	for i := 0; i < maxRollIterations; i++ {
		switch result.Weekday() {
		case time.Saturday:
			result = s.startOfBusinessAfter(result, 2, cfg)
			continue
		case time.Sunday:
			result = s.startOfBusinessAfter(result, 1, cfg)
			continue
		}

		if _, holiday := cfg.Holidays[result.Format("2006-01-02")]; holiday {
			result = s.startOfBusinessAfter(result, 1, cfg)
			continue
		}

		year, month, day := result.Date()
		start := time.Date(year, month, day, cfg.StartHour, cfg.StartMinute, 0, 0, cfg.Location)
		end := time.Date(year, month, day, cfg.EndHour, cfg.EndMinute, 0, 0, cfg.Location)

		if result.Before(start) {
			return start.Add(s.jitter(startJitterMinutes)), nil
		}
		if !result.Before(end) {
			result = s.startOfBusinessAfter(result, 1, cfg)
			continue
		}
		return result, nil
	}
	return time.Time{}, ErrCannotSchedule
}

// space pushes the candidate forward until it is at least minGap away from
// every existing slot, re-rolling business hours after each push. Rescans the
// full set after a push so earlier entries cannot be re-violated silently.
func (s *Scheduler) space(candidate time.Time, cfg Config, existing []time.Time) (time.Time, error) {
	for pass := 0; pass < maxSpacingPasses; pass++ {
		conflict := false
		for _, other := range existing {
			gap := candidate.Sub(other)
			if gap < 0 {
				gap = -gap
			}
			if gap < minGap {
				candidate = candidate.Add(minGap - gap + s.jitter(spacingJitterMinutes))
				rolled, err := s.rollToBusinessHours(candidate, cfg)
				if err != nil {
					return time.Time{}, err
				}
				candidate = rolled
				conflict = true
			}
		}
		if !conflict {
			return candidate, nil
		}
	}
	return time.Time{}, ErrCannotSchedule
}

func (s *Scheduler) startOfBusinessAfter(t time.Time, days int, cfg Config) time.Time {
	next := t.AddDate(0, 0, days)
	year, month, day := next.Date()
	start := time.Date(year, month, day, cfg.StartHour, cfg.StartMinute, 0, 0, cfg.Location)
	return start.Add(s.jitter(startJitterMinutes))
}

func (s *Scheduler) jitter(maxMinutes int) time.Duration {
	return time.Duration(s.rng.Intn(maxMinutes)) * time.Minute
}

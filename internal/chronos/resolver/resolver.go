// Package resolver infers whether a scan is an arrival or a departure.
// It is a pure function of the user's last attendance record, the scan
// time, and the configured working hours. Low confidence is advisory and
// never blocks a scan; Validate decides hard rejection separately.
package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
)

// ErrDuplicateWithinCooldown means the user scanned again less than the
// cooldown after their previous record (double-press guard).
var ErrDuplicateWithinCooldown = errors.New("duplicate scan within cooldown")

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// WorkingHours configures the daily schedule as "HH:MM" strings.
// Location is the IANA time zone the schedule is expressed in; empty
// means UTC. Scan times are converted into it before any day or band
// comparison, so a deployment in another zone keeps its local bands.
type WorkingHours struct {
	Start      string
	End        string
	LunchStart string
	LunchEnd   string
	Location   string
}

// DefaultWorkingHours is a conventional 8-to-5 schedule with an hour of
// lunch, used when no schedule is configured.
var DefaultWorkingHours = WorkingHours{
	Start:      "08:00",
	End:        "17:00",
	LunchStart: "12:00",
	LunchEnd:   "13:00",
}

// LastRecord is the slice of the user's most recent attendance record the
// resolver needs.
type LastRecord struct {
	Kind       types.RecordKind
	OccurredAt time.Time
}

// Resolution carries the inferred kind plus the advisory signal around it.
type Resolution struct {
	Kind        types.RecordKind
	Reason      string
	Confidence  Confidence
	Suggestions []string
}

const (
	// newSessionGap is the idle gap after which a scan starts a new work
	// session regardless of the previous kind.
	newSessionGap = 240 * time.Minute

	// duplicateCooldown is the hard minimum between two records for the
	// same user.
	duplicateCooldown = 5 * time.Minute

	// earlyWindow and overtimeWindow bound the early/after_work bands
	// around the scheduled day.
	earlyWindow    = 60 * time.Minute
	overtimeWindow = 120 * time.Minute

	// shortExitMargin: an EXIT more than this long before lunch or end of
	// day is probably a temporary exit, flagged for confirmation.
	shortExitMargin = 30 * time.Minute
)

// time band names
type band int

const (
	bandBeforeWork band = iota
	bandEarly
	bandMorning
	bandLunch
	bandAfternoon
	bandAfterWork
	bandNight
)

type Resolver struct {
	startMin, endMin           int
	lunchStartMin, lunchEndMin int
	loc                        *time.Location
}

func New(h WorkingHours) (*Resolver, error) {
	start, err := parseClock(h.Start)
	if err != nil {
		return nil, fmt.Errorf("working hours start: %w", err)
	}
	end, err := parseClock(h.End)
	if err != nil {
		return nil, fmt.Errorf("working hours end: %w", err)
	}
	lunchStart, err := parseClock(h.LunchStart)
	if err != nil {
		return nil, fmt.Errorf("lunch start: %w", err)
	}
	lunchEnd, err := parseClock(h.LunchEnd)
	if err != nil {
		return nil, fmt.Errorf("lunch end: %w", err)
	}
	if !(start < lunchStart && lunchStart < lunchEnd && lunchEnd < end) {
		return nil, fmt.Errorf("working hours out of order: %s %s %s %s",
			h.Start, h.LunchStart, h.LunchEnd, h.End)
	}
	loc := time.UTC
	if h.Location != "" {
		loc, err = time.LoadLocation(h.Location)
		if err != nil {
			return nil, fmt.Errorf("working hours location: %w", err)
		}
	}
	return &Resolver{
		startMin:      start,
		endMin:        end,
		lunchStartMin: lunchStart,
		lunchEndMin:   lunchEnd,
		loc:           loc,
	}, nil
}

// Resolve applies the ordered inference rules; first match wins.
func (r *Resolver) Resolve(last *LastRecord, now time.Time) Resolution {
	now = now.In(r.loc)

	if last == nil {
		return Resolution{
			Kind:       types.KindEntry,
			Reason:     "first attendance record for this user",
			Confidence: ConfidenceHigh,
		}
	}

	ly, lm, ld := last.OccurredAt.In(r.loc).Date()
	ny, nm, nd := now.Date()
	if ly != ny || lm != nm || ld != nd {
		return Resolution{
			Kind:       types.KindEntry,
			Reason:     "first scan of the day",
			Confidence: ConfidenceHigh,
		}
	}

	if gap := now.Sub(last.OccurredAt); gap > newSessionGap {
		return Resolution{
			Kind: types.KindEntry,
			Reason: fmt.Sprintf("more than %d minutes since last record, treating as a new session",
				int(newSessionGap.Minutes())),
			Confidence: ConfidenceHigh,
		}
	}

	next := last.Kind.Opposite()
	nowMin := now.Hour()*60 + now.Minute()

	switch r.classify(nowMin) {
	case bandLunch:
		// Lunch-break alternation is unambiguous: leaving on an ENTRY,
		// coming back on an EXIT.
		return Resolution{
			Kind:       next,
			Reason:     "lunch break alternation",
			Confidence: ConfidenceHigh,
		}

	case bandMorning:
		res := Resolution{
			Kind:       next,
			Reason:     "alternating from last record during the morning",
			Confidence: ConfidenceHigh,
		}
		if next == types.KindExit && nowMin < r.lunchStartMin-int(shortExitMargin.Minutes()) {
			res.Confidence = ConfidenceMedium
			res.Suggestions = append(res.Suggestions, "confirm if this is a temporary exit")
		}
		return res

	case bandAfternoon:
		res := Resolution{
			Kind:       next,
			Reason:     "alternating from last record during the afternoon",
			Confidence: ConfidenceHigh,
		}
		if next == types.KindExit && nowMin < r.endMin-int(shortExitMargin.Minutes()) {
			res.Confidence = ConfidenceMedium
			res.Suggestions = append(res.Suggestions, "confirm if this is a temporary exit")
		}
		return res

	case bandEarly:
		return Resolution{
			Kind:       next,
			Reason:     "alternating from last record shortly before working hours",
			Confidence: ConfidenceHigh,
		}

	case bandBeforeWork:
		return Resolution{
			Kind:        next,
			Reason:      "scan well before working hours",
			Confidence:  ConfidenceMedium,
			Suggestions: []string{"unusually early scan, confirm it is intended"},
		}

	case bandAfterWork:
		return Resolution{
			Kind:        next,
			Reason:      "scan after working hours",
			Confidence:  ConfidenceMedium,
			Suggestions: []string{"overtime scan, confirm it is intended"},
		}

	default: // bandNight
		return Resolution{
			Kind:        next,
			Reason:      "scan at night, far outside working hours",
			Confidence:  ConfidenceLow,
			Suggestions: []string{"night scan, confirm it is intended"},
		}
	}
}

// Validate applies the hard and soft checks around a proposed record.
// A hard failure returns ErrDuplicateWithinCooldown; soft findings come
// back as warnings and never block the scan.
func (r *Resolver) Validate(last *LastRecord, now time.Time, kind types.RecordKind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid record kind %q", kind)
	}
	now = now.In(r.loc)

	if last != nil {
		if gap := now.Sub(last.OccurredAt); gap >= 0 && gap < duplicateCooldown {
			return nil, fmt.Errorf("%w: last record %s ago",
				ErrDuplicateWithinCooldown, gap.Round(time.Second))
		}
	}

	var warnings []string
	if h := now.Hour(); h < 6 || h >= 22 {
		warnings = append(warnings, "scan outside normal hours (06:00-22:00)")
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		warnings = append(warnings, "scan on a weekend")
	}
	return warnings, nil
}

func (r *Resolver) classify(nowMin int) band {
	earlyMin := int(earlyWindow.Minutes())
	overtimeMin := int(overtimeWindow.Minutes())

	switch {
	case nowMin < r.startMin-earlyMin:
		return bandBeforeWork
	case nowMin < r.startMin:
		return bandEarly
	case nowMin < r.lunchStartMin:
		return bandMorning
	case nowMin < r.lunchEndMin:
		return bandLunch
	case nowMin < r.endMin:
		return bandAfternoon
	case nowMin < r.endMin+overtimeMin:
		return bandAfterWork
	default:
		return bandNight
	}
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

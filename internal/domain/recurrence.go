package domain

import (
	"sort"
	"time"
)

// WeeklyHorizonDays bounds how far a weekly template may be expanded.
const WeeklyHorizonDays = 180

// WeeklyAvailability is a template that repeats the same open window on
// chosen weekdays. Weekdays use ISO numbering, 1 = Monday ... 7 = Sunday.
type WeeklyAvailability struct {
	StaffID     string
	StartDate   string
	UntilDate   string
	Weekdays    []int16
	Interval    int
	StartTime   string
	EndTime     string
	IsAvailable bool
}

// ExpandWeekly materializes the template into concrete slots ordered by date.
// Inputs are expected to be normalized already (see ParseDate / ParseRange).
func ExpandWeekly(w WeeklyAvailability) ([]AvailabilitySlot, error) {
	start, err := time.Parse(DateLayout, w.StartDate)
	if err != nil {
		return nil, Invalid("start_date must be YYYY-MM-DD")
	}
	until, err := time.Parse(DateLayout, w.UntilDate)
	if err != nil {
		return nil, Invalid("until_date must be YYYY-MM-DD")
	}
	if until.Before(start) {
		return nil, Invalid("until_date must not be before start_date")
	}
	if until.Sub(start) > WeeklyHorizonDays*24*time.Hour {
		return nil, Invalid("until_date must be within 180 days of start_date")
	}

	weekdays, err := normalizeWeekdays(w.Weekdays)
	if err != nil {
		return nil, err
	}

	interval := w.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 1 {
		return nil, Invalid("interval must be at least 1")
	}

	out := make([]AvailabilitySlot, 0, 16)
	firstMonday := mondayOf(start)

	for weekIndex := 0; ; weekIndex++ {
		monday := firstMonday.AddDate(0, 0, weekIndex*interval*7)
		if monday.After(until) {
			break
		}
		for _, wd := range weekdays {
			day := monday.AddDate(0, 0, weekdayOffsetFromMonday(wd))
			if day.Before(start) || day.After(until) {
				continue
			}
			out = append(out, AvailabilitySlot{
				StaffID:     w.StaffID,
				Date:        day.Format(DateLayout),
				StartTime:   w.StartTime,
				EndTime:     w.EndTime,
				IsAvailable: w.IsAvailable,
			})
		}
	}

	return out, nil
}

func normalizeWeekdays(in []int16) ([]int16, error) {
	seen := make(map[int16]struct{}, len(in))
	out := make([]int16, 0, len(in))
	for _, wd := range in {
		if wd < 1 || wd > 7 {
			return nil, Invalid("invalid weekday")
		}
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, Invalid("at least one weekday is required")
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func mondayOf(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -offset)
}

func weekdayOffsetFromMonday(weekday int16) int {
	if weekday == 7 {
		return 6
	}
	return int(weekday) - 1
}

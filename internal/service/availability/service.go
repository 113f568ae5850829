// Package availability manages the open windows staff members declare
// and derives what is still bookable from them.
package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/metrics"
	"queuesmart/backend/internal/store"
)

type Repository interface {
	store.AvailabilityRepository
	BookedSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.SlotKey, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "availability")),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type SlotInput struct {
	Date      string
	StartTime string
	EndTime   string
	// IsAvailable defaults to true.
	IsAvailable *bool
}

// AddSlot declares one window for the calling staff member. Overlapping
// windows are accepted; staff own their calendar.
func (s *Service) AddSlot(ctx context.Context, actor domain.Actor, in SlotInput) (domain.AvailabilitySlot, error) {
	if !actor.IsStaff() {
		return domain.AvailabilitySlot{}, domain.ErrForbidden
	}
	date, err := domain.ParseDate("date", in.Date)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	start, end, err := domain.ParseRange(in.StartTime, in.EndTime)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}

	slot, err := s.repo.CreateSlot(ctx, domain.AvailabilitySlot{
		StaffID:     actor.UserID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
	})
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	metrics.SlotsCreated.Inc()
	return slot, nil
}

func (s *Service) RemoveSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) error {
	if !actor.IsStaff() {
		return domain.ErrForbidden
	}
	return s.repo.DeleteSlot(ctx, actor.UserID, slotID)
}

func (s *Service) ToggleSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) (domain.AvailabilitySlot, error) {
	if !actor.IsStaff() {
		return domain.AvailabilitySlot{}, domain.ErrForbidden
	}
	return s.repo.ToggleSlot(ctx, actor.UserID, slotID)
}

// ListAvailable returns the staff member's available slots from fromDate
// on, ordered by (date, start). An empty fromDate means today.
func (s *Service) ListAvailable(ctx context.Context, staffID, fromDate string) ([]domain.AvailabilitySlot, error) {
	from, err := s.fromDate(staffID, fromDate)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSlots(ctx, store.SlotFilter{StaffID: staffID, FromDate: from, OnlyAvailable: true})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.AvailabilitySlot{}
	}
	return rows, nil
}

// OpenSlots is ListAvailable minus the (date, start) pairs already held by
// an active appointment. The excluded appointment does not count, so an
// edit can offer its own current slot.
func (s *Service) OpenSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.AvailabilitySlot, error) {
	slots, err := s.ListAvailable(ctx, staffID, fromDate)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return slots, nil
	}

	booked, err := s.repo.BookedSlots(ctx, staffID, slots[0].Date, exclude)
	if err != nil {
		return nil, err
	}
	held := make(map[domain.SlotKey]struct{}, len(booked))
	for _, k := range booked {
		held[k] = struct{}{}
	}

	out := make([]domain.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if _, ok := held[domain.SlotKey{Date: slot.Date, Time: slot.StartTime}]; ok {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

type WeeklyInput struct {
	StartDate   string
	UntilDate   string
	Weekdays    []int16
	Interval    int
	StartTime   string
	EndTime     string
	IsAvailable *bool
}

// AddWeekly expands a weekly template and inserts the slots in one
// transaction. Dates that already have a slot at the same start are
// skipped; only the inserted slots are returned.
func (s *Service) AddWeekly(ctx context.Context, actor domain.Actor, in WeeklyInput) ([]domain.AvailabilitySlot, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	startDate, err := domain.ParseDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	untilDate, err := domain.ParseDate("until_date", in.UntilDate)
	if err != nil {
		return nil, err
	}
	start, end, err := domain.ParseRange(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	slots, err := domain.ExpandWeekly(domain.WeeklyAvailability{
		StaffID:     actor.UserID,
		StartDate:   startDate,
		UntilDate:   untilDate,
		Weekdays:    in.Weekdays,
		Interval:    in.Interval,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
	})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, domain.Invalid("weekly template produces no dates")
	}

	created, err := s.repo.CreateSlots(ctx, slots)
	if err != nil {
		return nil, err
	}
	metrics.SlotsCreated.Add(float64(len(created)))
	s.log.InfoContext(ctx, "weekly availability added",
		slog.String("staff_id", actor.UserID),
		slog.Int("expanded", len(slots)),
		slog.Int("created", len(created)),
	)
	return created, nil
}

type DayStatus string

const (
	DayAvailable DayStatus = "available"
	DayOccupied  DayStatus = "occupied"
	DayMixed     DayStatus = "mixed"
	DayNotSet    DayStatus = "not-set"
)

type CalendarDay struct {
	Date   string
	Status DayStatus
	Slots  []domain.AvailabilitySlot
}

type Calendar struct {
	Year  int
	Month int
	Days  []CalendarDay
}

// MonthCalendar lists every day of the month with the calling staff
// member's slots. Zero year or month mean the current one.
func (s *Service) MonthCalendar(ctx context.Context, actor domain.Actor, year, month int) (Calendar, error) {
	if !actor.IsStaff() {
		return Calendar{}, domain.ErrForbidden
	}
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return Calendar{}, domain.Invalid("month must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return Calendar{}, domain.Invalid("year out of range")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	rows, err := s.repo.ListSlots(ctx, store.SlotFilter{
		StaffID:  actor.UserID,
		FromDate: first.Format(domain.DateLayout),
		ToDate:   last.Format(domain.DateLayout),
	})
	if err != nil {
		return Calendar{}, err
	}
	byDate := make(map[string][]domain.AvailabilitySlot, len(rows))
	for _, r := range rows {
		byDate[r.Date] = append(byDate[r.Date], r)
	}

	cal := Calendar{Year: year, Month: month, Days: make([]CalendarDay, 0, last.Day())}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(domain.DateLayout)
		slots := byDate[date]
		if slots == nil {
			slots = []domain.AvailabilitySlot{}
		}
		cal.Days = append(cal.Days, CalendarDay{Date: date, Status: dayStatus(slots), Slots: slots})
	}
	return cal, nil
}

func dayStatus(slots []domain.AvailabilitySlot) DayStatus {
	if len(slots) == 0 {
		return DayNotSet
	}
	open := 0
	for _, s := range slots {
		if s.IsAvailable {
			open++
		}
	}
	switch open {
	case len(slots):
		return DayAvailable
	case 0:
		return DayOccupied
	}
	return DayMixed
}

func (s *Service) fromDate(staffID, fromDate string) (string, error) {
	if staffID == "" {
		return "", domain.Invalid("staff_id is required")
	}
	if fromDate == "" {
		return s.now().Format(domain.DateLayout), nil
	}
	return domain.ParseDate("from", fromDate)
}

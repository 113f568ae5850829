package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/metrics"
	"queuesmart/backend/internal/service/booking"
	"queuesmart/backend/internal/service/queue"
	"queuesmart/backend/internal/store"
)

// maxLockAttempts bounds how often an operation re-locks when the
// appointment moved to another staff member between read and lock.
const maxLockAttempts = 3

var errStaffChanged = errors.New("appointment staff changed while locking")

// Emitter receives events after their transition has committed.
type Emitter interface {
	Emit(ctx context.Context, ev domain.NotificationEvent) error
}

type Service struct {
	repo      store.AppointmentRepository
	dir       store.Directory
	validator *booking.Validator
	sequencer *queue.Sequencer
	board     *queue.Board
	emitter   Emitter
	log       *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Repository interface {
	store.AppointmentRepository
	store.Directory
}

func NewService(repo Repository, emitter Emitter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		dir:       repo,
		validator: booking.NewValidator(),
		sequencer: queue.NewSequencer(),
		board:     queue.NewBoard(repo),
		emitter:   emitter,
		log:       log.With(slog.String("component", "appointments")),
		tracer:    otel.Tracer("queuesmart/backend/internal/service/appointments"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	// ClientID is only read when an admin books on a client's behalf.
	ClientID       string
	ServiceID      string
	StaffID        string
	Date           string
	Time           string
	IdempotencyKey string
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "create")
	defer done(&err)

	clientID, err := bookingClient(actor, in.ClientID)
	if err != nil {
		return domain.Appointment{}, err
	}
	req, err := booking.NewRequest(in.ServiceID, in.StaffID, in.Date, in.Time)
	if err != nil {
		return domain.Appointment{}, err
	}

	var id uuid.UUID
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, domain.Invalid("idempotency_key too long")
		}
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("queuesmart:create_appointment:"+clientID+":"+key))
	}

	var (
		events []domain.NotificationEvent
		replay bool
	)
	err = s.repo.InStaffTransaction(ctx, []string{req.StaffID}, func(ctx context.Context, tx store.AppointmentTx) error {
		if id != uuid.Nil {
			existing, err := tx.GetAppointment(ctx, id)
			switch {
			case err == nil:
				if !sameBooking(existing, clientID, req) {
					return domain.ErrIdempotencyConflict
				}
				appt, replay = existing, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		res, err := s.validator.Validate(ctx, tx, req)
		if err != nil {
			return err
		}
		client, err := resolveClient(ctx, tx, clientID)
		if err != nil {
			return err
		}

		created, err := tx.InsertAppointment(ctx, domain.Appointment{
			ID:        id,
			ClientID:  clientID,
			ServiceID: res.Service.ID,
			StaffID:   res.Staff.ID,
			Date:      req.Slot.Date,
			Time:      req.Slot.Time,
			Status:    domain.StatusPending,
		})
		if err != nil {
			return createConflict(err, id != uuid.Nil)
		}
		appt = created

		nctx := notificationContext(created, res.Service, client)
		events = append(events,
			s.event(domain.KindConfirmation, created.ClientID, created, nctx),
			s.event(domain.KindBooking, created.StaffID, created, nctx),
		)
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	if !replay {
		s.dispatch(ctx, events)
	}
	return appt, nil
}

// Approve puts a pending appointment into the approving staff member's
// queue. The queue number is read and written under that staff's lock.
func (s *Service) Approve(ctx context.Context, actor domain.Actor, id uuid.UUID) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "approve")
	defer done(&err)

	if !actor.IsStaff() {
		return domain.Appointment{}, domain.ErrForbidden
	}

	approver := actor.UserID
	appt, events, err := s.mutate(ctx, id, []string{approver}, func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error) {
		svc, err := tx.GetService(ctx, appt.ServiceID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		if !canManage(actor, appt, svc) {
			return domain.Appointment{}, nil, domain.ErrNotFound
		}
		if !appt.Status.CanTransitionTo(domain.StatusApproved) {
			return domain.Appointment{}, nil, &domain.InvalidStateError{Op: "approve", From: appt.Status}
		}
		if !svc.ProvidedBy(approver) {
			return domain.Appointment{}, nil, domain.ErrStaffDoesNotProvideService
		}
		if _, err := booking.ResolveStaff(ctx, tx, approver); err != nil {
			return domain.Appointment{}, nil, err
		}
		if approver != appt.StaffID {
			if err := s.validator.CheckSlotFree(ctx, tx, approver, appt.Slot(), appt.ID); err != nil {
				return domain.Appointment{}, nil, err
			}
		}

		n, err := s.sequencer.Next(ctx, tx, approver)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		if err := appt.Transition("approve", domain.StatusApproved); err != nil {
			return domain.Appointment{}, nil, err
		}
		appt.StaffID = approver
		appt.QueueNumber = &n

		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return domain.Appointment{}, nil, slotConflict(err)
		}
		metrics.QueueNumbersAssigned.Inc()

		client, err := tx.GetUser(ctx, updated.ClientID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		ev := s.event(domain.KindApproval, updated.ClientID, updated, notificationContext(updated, svc, client))
		return updated, []domain.NotificationEvent{ev}, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	s.dispatch(ctx, events)
	return appt, nil
}

func (s *Service) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "reject")
	defer done(&err)

	return s.simpleTransition(ctx, actor, id, "reject", domain.StatusRejected, domain.KindRejection)
}

func (s *Service) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "complete")
	defer done(&err)

	return s.simpleTransition(ctx, actor, id, "complete", domain.StatusCompleted, domain.KindCompleted)
}

// MarkServing starts serving an approved appointment. Whatever the same
// staff member was serving is completed first, each with its own event.
func (s *Service) MarkServing(ctx context.Context, actor domain.Actor, id uuid.UUID) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "serve")
	defer done(&err)

	if !actor.IsStaff() && !actor.IsAdmin() {
		return domain.Appointment{}, domain.ErrForbidden
	}

	appt, events, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error) {
		svc, err := tx.GetService(ctx, appt.ServiceID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		if !canManage(actor, appt, svc) {
			return domain.Appointment{}, nil, domain.ErrNotFound
		}
		if !appt.Status.CanTransitionTo(domain.StatusServing) {
			return domain.Appointment{}, nil, &domain.InvalidStateError{Op: "serve", From: appt.Status}
		}

		var events []domain.NotificationEvent

		serving, err := tx.ListServing(ctx, appt.StaffID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		for _, prev := range serving {
			if prev.ID == appt.ID {
				continue
			}
			ev, err := s.completeInTx(ctx, tx, prev)
			if err != nil {
				return domain.Appointment{}, nil, err
			}
			metrics.AutoCompleted.Inc()
			s.log.InfoContext(ctx, "auto-completed serving appointment",
				slog.String("appointment_id", prev.ID.String()),
				slog.String("staff_id", prev.StaffID),
				slog.String("superseded_by", appt.ID.String()),
			)
			events = append(events, ev)
		}

		if err := appt.Transition("serve", domain.StatusServing); err != nil {
			return domain.Appointment{}, nil, err
		}
		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		client, err := tx.GetUser(ctx, updated.ClientID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		events = append(events, s.event(domain.KindReminder, updated.ClientID, updated, notificationContext(updated, svc, client)))
		return updated, events, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	s.dispatch(ctx, events)
	return appt, nil
}

type EditInput struct {
	ServiceID string
	StaffID   string
	Date      string
	Time      string
}

// Edit moves a pending or rejected appointment to a new service, staff or
// slot. It always comes back pending and out of any queue.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, id uuid.UUID, in EditInput) (appt domain.Appointment, err error) {
	ctx, done := s.start(ctx, "edit")
	defer done(&err)

	if !actor.IsClient() && !actor.IsAdmin() {
		return domain.Appointment{}, domain.ErrForbidden
	}
	req, err := booking.NewRequest(in.ServiceID, in.StaffID, in.Date, in.Time)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, events, err := s.mutate(ctx, id, []string{req.StaffID}, func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error) {
		if !ownsOrAdmin(actor, appt) {
			return domain.Appointment{}, nil, domain.ErrNotFound
		}
		if !appt.Status.Editable() {
			return domain.Appointment{}, nil, &domain.InvalidStateError{Op: "edit", From: appt.Status}
		}

		req.Exclude = appt.ID
		res, err := s.validator.Validate(ctx, tx, req)
		if err != nil {
			return domain.Appointment{}, nil, err
		}

		prevDate, prevTime := appt.Date, appt.Time
		if err := appt.Transition("edit", domain.StatusPending); err != nil {
			return domain.Appointment{}, nil, err
		}
		appt.ServiceID = res.Service.ID
		appt.StaffID = res.Staff.ID
		appt.BookedStaffID = res.Staff.ID
		appt.Date = req.Slot.Date
		appt.Time = req.Slot.Time

		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return domain.Appointment{}, nil, slotConflict(err)
		}
		client, err := tx.GetUser(ctx, updated.ClientID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}

		nctx := notificationContext(updated, res.Service, client)
		nctx.PreviousDate = prevDate
		nctx.PreviousTime = prevTime
		ev := s.event(domain.KindEdited, updated.StaffID, updated, nctx)
		return updated, []domain.NotificationEvent{ev}, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	s.dispatch(ctx, events)
	return appt, nil
}

// Cancel deletes any appointment that is not completed. The cancellation
// event is captured before the row goes away.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (err error) {
	ctx, done := s.start(ctx, "cancel")
	defer done(&err)

	if !actor.IsClient() && !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	_, events, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error) {
		if !ownsOrAdmin(actor, appt) {
			return domain.Appointment{}, nil, domain.ErrNotFound
		}
		if appt.Status.Terminal() {
			return domain.Appointment{}, nil, &domain.InvalidStateError{Op: "cancel", From: appt.Status}
		}

		svc, err := tx.GetService(ctx, appt.ServiceID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		client, err := tx.GetUser(ctx, appt.ClientID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		ev := s.event(domain.KindCancellation, appt.StaffID, appt, notificationContext(appt, svc, client))

		if err := tx.DeleteAppointment(ctx, appt.ID); err != nil {
			return domain.Appointment{}, nil, err
		}
		return appt, []domain.NotificationEvent{ev}, nil
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, events)
	return nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if ownsOrAdmin(actor, appt) {
		return appt, nil
	}
	if actor.IsStaff() {
		svc, err := s.dir.GetService(ctx, appt.ServiceID)
		if err != nil {
			return domain.Appointment{}, err
		}
		if canManage(actor, appt, svc) {
			return appt, nil
		}
	}
	return domain.Appointment{}, domain.ErrNotFound
}

// ListMine returns the calling client's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error) {
	if !actor.IsClient() {
		return nil, domain.ErrForbidden
	}
	rows, err := s.repo.ListByClient(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Appointment{}
	}
	return rows, nil
}

func (s *Service) StaffDashboard(ctx context.Context, actor domain.Actor) (queue.Dashboard, error) {
	if !actor.IsStaff() {
		return queue.Dashboard{}, domain.ErrForbidden
	}
	return s.board.Dashboard(ctx, actor.UserID)
}

// DailySchedule defaults to today when date is empty.
func (s *Service) DailySchedule(ctx context.Context, actor domain.Actor, date string) (queue.Schedule, error) {
	if !actor.IsStaff() {
		return queue.Schedule{}, domain.ErrForbidden
	}
	if date == "" {
		date = s.now().Format(domain.DateLayout)
	}
	d, err := domain.ParseDate("date", date)
	if err != nil {
		return queue.Schedule{}, err
	}
	return s.board.Schedule(ctx, actor.UserID, d)
}

func (s *Service) simpleTransition(ctx context.Context, actor domain.Actor, id uuid.UUID, op string, next domain.Status, kind domain.NotificationKind) (domain.Appointment, error) {
	if !actor.IsStaff() && !actor.IsAdmin() {
		return domain.Appointment{}, domain.ErrForbidden
	}

	appt, events, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error) {
		svc, err := tx.GetService(ctx, appt.ServiceID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		if !canManage(actor, appt, svc) {
			return domain.Appointment{}, nil, domain.ErrNotFound
		}
		if err := appt.Transition(op, next); err != nil {
			return domain.Appointment{}, nil, err
		}
		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		client, err := tx.GetUser(ctx, updated.ClientID)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		ev := s.event(kind, updated.ClientID, updated, notificationContext(updated, svc, client))
		return updated, []domain.NotificationEvent{ev}, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	s.dispatch(ctx, events)
	return appt, nil
}

func (s *Service) completeInTx(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.NotificationEvent, error) {
	if err := appt.Transition("complete", domain.StatusCompleted); err != nil {
		return domain.NotificationEvent{}, err
	}
	updated, err := tx.UpdateAppointment(ctx, appt)
	if err != nil {
		return domain.NotificationEvent{}, err
	}
	svc, err := tx.GetService(ctx, updated.ServiceID)
	if err != nil {
		return domain.NotificationEvent{}, err
	}
	client, err := tx.GetUser(ctx, updated.ClientID)
	if err != nil {
		return domain.NotificationEvent{}, err
	}
	return s.event(domain.KindCompleted, updated.ClientID, updated, notificationContext(updated, svc, client)), nil
}

type mutation func(ctx context.Context, tx store.AppointmentTx, appt domain.Appointment) (domain.Appointment, []domain.NotificationEvent, error)

// mutate locks the appointment's current staff plus extra, re-reads the row
// inside the transaction and applies fn. If the row changed staff between
// the unlocked read and the lock, the whole attempt is retried.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, extra []string, fn mutation) (domain.Appointment, []domain.NotificationEvent, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("appointment.id", id.String()))

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		cur, err := s.repo.Get(ctx, id)
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		locked := cur.StaffID

		var (
			out    domain.Appointment
			events []domain.NotificationEvent
		)
		err = s.repo.InStaffTransaction(ctx, append([]string{locked}, extra...), func(ctx context.Context, tx store.AppointmentTx) error {
			appt, err := tx.GetAppointment(ctx, id)
			if err != nil {
				return err
			}
			if appt.StaffID != locked {
				return errStaffChanged
			}
			out, events, err = fn(ctx, tx, appt)
			return err
		})
		if errors.Is(err, errStaffChanged) {
			continue
		}
		if err != nil {
			return domain.Appointment{}, nil, err
		}
		return out, events, nil
	}
	return domain.Appointment{}, nil, fmt.Errorf("appointment %s: %w", id, errStaffChanged)
}

// dispatch hands committed events to the emitter. Delivery failures never
// reach the caller.
func (s *Service) dispatch(ctx context.Context, events []domain.NotificationEvent) {
	if s.emitter == nil {
		return
	}
	for _, ev := range events {
		if err := s.emitter.Emit(ctx, ev); err != nil {
			metrics.RecordDropped(string(ev.Kind))
			s.log.WarnContext(ctx, "notification delivery failed",
				slog.String("event_id", ev.ID.String()),
				slog.String("kind", string(ev.Kind)),
				slog.String("recipient_id", ev.RecipientID),
				slog.String("appointment_id", ev.AppointmentID.String()),
				slog.Any("err", err),
			)
		}
	}
}

func (s *Service) event(kind domain.NotificationKind, recipient string, appt domain.Appointment, nctx domain.NotificationContext) domain.NotificationEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return domain.NotificationEvent{
		ID:            id,
		RecipientID:   recipient,
		AppointmentID: appt.ID,
		Kind:          kind,
		Context:       nctx,
		OccurredAt:    s.now(),
	}
}

func (s *Service) start(ctx context.Context, op string) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "appointments."+op)
	return ctx, func(errp *error) {
		result := "ok"
		if err := *errp; err != nil {
			result = errorClass(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		metrics.RecordTransition(op, result)
		span.End()
	}
}

func notificationContext(appt domain.Appointment, svc domain.Service, client domain.User) domain.NotificationContext {
	return domain.NotificationContext{
		ServiceName: svc.Name,
		ClientName:  client.FullName(),
		StaffID:     appt.StaffID,
		Date:        appt.Date,
		Time:        appt.Time,
		Status:      appt.Status,
		QueueNumber: appt.QueueNumber,
	}
}

// canManage is true for admins, the assigned staff member and any staff
// member who provides the appointment's service.
func canManage(actor domain.Actor, appt domain.Appointment, svc domain.Service) bool {
	if actor.IsAdmin() {
		return true
	}
	if !actor.IsStaff() {
		return false
	}
	return actor.IsStaffMember(appt.StaffID) || svc.ProvidedBy(actor.UserID)
}

func ownsOrAdmin(actor domain.Actor, appt domain.Appointment) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsClient() && actor.UserID != "" && actor.UserID == appt.ClientID
}

func bookingClient(actor domain.Actor, requested string) (string, error) {
	switch {
	case actor.IsClient():
		if actor.UserID == "" {
			return "", domain.ErrForbidden
		}
		if requested != "" && requested != actor.UserID {
			return "", domain.ErrForbidden
		}
		return actor.UserID, nil
	case actor.IsAdmin():
		if requested == "" {
			return "", domain.Invalid("client_id is required")
		}
		return requested, nil
	}
	return "", domain.ErrForbidden
}

func resolveClient(ctx context.Context, tx store.AppointmentTx, clientID string) (domain.User, error) {
	u, err := tx.GetUser(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("client %w", domain.ErrNotFound)
		}
		return domain.User{}, err
	}
	if u.Role != domain.RoleClient {
		return domain.User{}, fmt.Errorf("client %w", domain.ErrNotFound)
	}
	return u, nil
}

func sameBooking(a domain.Appointment, clientID string, req booking.Request) bool {
	return a.ClientID == clientID &&
		a.ServiceID == req.ServiceID &&
		a.BookedStaffID == req.StaffID &&
		a.Date == req.Slot.Date &&
		a.Time == req.Slot.Time
}

// slotConflict reports a unique-index race on the active slot as SlotTaken.
func slotConflict(err error) error {
	if errors.Is(err, store.ErrConflict) && !errors.Is(err, domain.ErrSlotTaken) {
		return domain.ErrSlotTaken
	}
	return err
}

// createConflict tells a keyed insert that lost the id race to a concurrent
// create with the same key apart from a slot race.
func createConflict(err error, keyed bool) error {
	if keyed && errors.Is(err, store.ErrDuplicateID) {
		return domain.ErrIdempotencyConflict
	}
	return slotConflict(err)
}

func errorClass(err error) string {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	}
	return "error"
}

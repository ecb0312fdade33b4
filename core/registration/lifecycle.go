package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
)

// notification messages
const (
	MsgOpened        = "Registration opened successfully"
	MsgOpenFailed    = "Failed to open registration"
	MsgAlreadyOpen   = "A registration is already open for this semester"
	MsgOpenElsewhere = "The registration of a previous semester is still open"
	MsgClosed        = "Registration closed"
	MsgCloseFailed   = "Failed to close registration"
	MsgEdited        = "Registration updated"
	MsgEditFailed    = "Failed to edit registration"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type (
	// Remote is the durable source of truth for registrations.
	// Rejections may carry a human readable message through *RemoteError.
	Remote interface {
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		UpdateRegistration(ctx context.Context, reg Registration) (Registration, error)
		CreateRegistrableCourse(ctx context.Context, rc RegistrableCourse) (RegistrableCourse, error)
		QueryRegistrations(ctx context.Context, semesterID string) ([]Registration, error)
	}

	// Notifier informs users of the outcome of lifecycle operations. Fire and forget.
	Notifier interface {
		Notify(message string, severity Severity)
	}

	// status of an in-flight operation
	status int

	LifecycleDeps struct {
		Store    *Store
		Remote   Remote
		Notifier Notifier
		Logger   core.Logger
		Schedule ScheduleFunc // defaults to AfterFunc

		// RemoteTimeout bounds the remote calls of the auto-close path, which has no caller context.
		RemoteTimeout time.Duration
	}

	// Lifecycle opens, edits and closes registrations against the Remote, keeping the Store and
	// the AutoCloseTimer in sync with what the Remote accepted.
	Lifecycle struct {
		store         *Store
		remote        Remote
		notifier      Notifier
		logger        core.Logger
		timer         *AutoCloseTimer
		remoteTimeout time.Duration

		mu          sync.Mutex
		openStatus  status
		closeStatus status
		editStatus  status
	}
)

const (
	idle status = iota
	pending
)

func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	lc := &Lifecycle{
		store:         deps.Store,
		remote:        deps.Remote,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		remoteTimeout: deps.RemoteTimeout,
	}
	if lc.store == nil {
		lc.store = NewStore()
	}
	if lc.remoteTimeout <= 0 {
		lc.remoteTimeout = 10 * time.Second
	}
	lc.timer = NewAutoCloseTimer(deps.Schedule, lc.autoClose)
	return lc
}

func (lc *Lifecycle) Store() *Store          { return lc.store }
func (lc *Lifecycle) Timer() *AutoCloseTimer { return lc.timer }

// Open creates a new opening registration for semester, then makes the selected courses registrable.
// It returns ErrSkipped, without notifying, when there is no course or no semester.
// A semester the Store has not loaded yet is refreshed first. While the registration of another semester
// is still open, it returns ErrOpenElsewhere.
// Courses are applied one after the other; the first failure stops the sequence and nothing is rolled back.
func (lc *Lifecycle) Open(ctx context.Context, req OpenRequest, courses []course.Course, semester *course.Semester) (Registration, error) {
	if len(courses) == 0 || semester == nil {
		return Registration{}, ErrSkipped
	}
	if !lc.begin(&lc.openStatus) {
		return Registration{}, ErrOpenPending
	}
	defer lc.end(&lc.openStatus)

	if !lc.store.Loaded(semester.ID) {
		if err := lc.Refresh(ctx, semester.ID); err != nil {
			lc.fail(err, MsgOpenFailed, "loading registrations")
			return Registration{}, err
		}
	}
	if lc.store.OpenInSemester(semester.ID) {
		lc.notify(MsgAlreadyOpen, SeverityError)
		return Registration{}, ErrAlreadyOpen
	}
	// the Store watches a single open registration
	if current, ok := lc.store.CurrentOpen(); ok && current.SemesterID != semester.ID {
		lc.notify(MsgOpenElsewhere, SeverityError)
		return Registration{}, ErrOpenElsewhere
	}

	now := core.UTC(nowFunc())
	reg, err := lc.remote.CreateRegistration(ctx, Registration{
		Batch:      lc.store.CountForSemester(semester.ID) + 1,
		SemesterID: semester.ID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		IsOpening:  true,
		IsHidden:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		lc.fail(err, MsgOpenFailed, "creating registration")
		return Registration{}, errors.Wrap(err, "creating registration")
	}
	lc.store.Replace(reg)
	lc.timer.Watch(&reg)

	for _, c := range SelectCourses(req, courses) {
		_, err := lc.remote.CreateRegistrableCourse(ctx, RegistrableCourse{
			RegistrationID: reg.ID,
			CourseID:       c.ID,
			CreatedAt:      now,
		})
		if err != nil {
			lc.fail(err, MsgOpenFailed, fmt.Sprintf("creating registrable course %q", c.ID))
			return reg, errors.Wrapf(err, "creating registrable course %q", c.ID)
		}
	}

	lc.notify(MsgOpened, SeveritySuccess)
	return reg, nil
}

// Close closes reg on the Remote, then in the Store. Closing a registration that is not opening is a no-op.
// It returns ErrClosePending while another close is in flight, and ErrEditPending while an edit is.
func (lc *Lifecycle) Close(ctx context.Context, reg Registration) (Registration, error) {
	if !reg.IsOpening {
		return reg, nil
	}
	if err := lc.beginUpdate(&lc.closeStatus); err != nil {
		return reg, err
	}
	defer lc.end(&lc.closeStatus)

	if current, ok := lc.store.Get(reg.ID); ok {
		if !current.IsOpening {
			return current, nil
		}
		reg = current
	}

	closed := reg.Clone()
	now := core.UTC(nowFunc())
	closed.IsOpening = false
	closed.ClosedAt = &now
	closed.UpdatedAt = now

	updated, err := lc.remote.UpdateRegistration(ctx, closed)
	if err != nil {
		lc.fail(err, MsgCloseFailed, "closing registration")
		return reg, errors.Wrap(err, "closing registration")
	}
	lc.store.Replace(updated)
	lc.rearm()

	lc.notify(MsgClosed, SeveritySuccess)
	return updated, nil
}

// Edit updates the dates and visibility of the registration identified by id.
// Edits and closes exclude each other: it returns ErrClosePending or ErrEditPending while one is in flight.
func (lc *Lifecycle) Edit(ctx context.Context, id string, er EditRegistration) (Registration, error) {
	if _, ok := lc.store.Get(id); !ok {
		return Registration{}, ErrNotFound
	}
	if err := lc.beginUpdate(&lc.editStatus); err != nil {
		return Registration{}, err
	}
	defer lc.end(&lc.editStatus)

	// read under the guard, a close may have just completed
	reg, ok := lc.store.Get(id)
	if !ok {
		return Registration{}, ErrNotFound
	}

	edited := er.apply(reg)
	if edited.EndDate.Before(edited.StartDate) {
		return reg, core.NewValidationError(
			ErrInvalidDateRange,
			core.FieldError{Field: "end_date", Error: dateRangeText},
		)
	}
	edited.UpdatedAt = core.UTC(nowFunc())

	updated, err := lc.remote.UpdateRegistration(ctx, edited)
	if err != nil {
		lc.fail(err, MsgEditFailed, "editing registration")
		return reg, errors.Wrap(err, "editing registration")
	}
	lc.store.Replace(updated)
	// the timer may have fired, and been turned away, while the edit was in flight
	lc.timer.Disarm()
	lc.rearm()

	lc.notify(MsgEdited, SeveritySuccess)
	return updated, nil
}

// Refresh loads the registrations of semesterID from the Remote and re-arms the timer.
// An open registration whose end date already passed is closed right away.
func (lc *Lifecycle) Refresh(ctx context.Context, semesterID string) error {
	regs, err := lc.remote.QueryRegistrations(ctx, semesterID)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	lc.store.Load(semesterID, regs)
	lc.rearm()
	return nil
}

// Shutdown disarms the timer.
func (lc *Lifecycle) Shutdown() {
	lc.timer.Disarm()
}

func (lc *Lifecycle) autoClose(reg Registration) {
	ctx, cancel := context.WithTimeout(context.Background(), lc.remoteTimeout)
	defer cancel()

	_, err := lc.Close(ctx, reg)
	if err != nil && !errors.Is(err, ErrClosePending) && !errors.Is(err, ErrEditPending) && lc.logger != nil {
		lc.logger.Error(fmt.Sprintf("auto-closing registration %q: %v", reg.ID, err), err)
	}
}

// rearm points the timer at the open registration of the Store, if any.
func (lc *Lifecycle) rearm() {
	if reg, ok := lc.store.CurrentOpen(); ok {
		lc.timer.Watch(&reg)
		return
	}
	lc.timer.Disarm()
}

func (lc *Lifecycle) begin(st *status) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if *st == pending {
		return false
	}
	*st = pending
	return true
}

// beginUpdate marks st pending unless a close or an edit is already in flight.
func (lc *Lifecycle) beginUpdate(st *status) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	switch {
	case lc.closeStatus == pending:
		return ErrClosePending
	case lc.editStatus == pending:
		return ErrEditPending
	}
	*st = pending
	return nil
}

func (lc *Lifecycle) end(st *status) {
	lc.mu.Lock()
	*st = idle
	lc.mu.Unlock()
}

func (lc *Lifecycle) fail(err error, fallback, op string) {
	if lc.logger != nil {
		lc.logger.Warn(fmt.Sprintf("%s: %v", op, err), err)
	}
	lc.notify(MessageOf(err, fallback), SeverityError)
}

func (lc *Lifecycle) notify(msg string, severity Severity) {
	if lc.notifier != nil {
		lc.notifier.Notify(msg, severity)
	}
}

// SelectCourses returns the courses to make registrable, in catalog order.
// Unknown ids in req.CourseIDs are ignored.
func SelectCourses(req OpenRequest, courses []course.Course) []course.Course {
	if req.ApplyToAllCourses {
		return courses
	}
	selected := make(map[string]bool, len(req.CourseIDs))
	for _, id := range req.CourseIDs {
		selected[id] = true
	}
	var cs []course.Course
	for _, c := range courses {
		if selected[c.ID] {
			cs = append(cs, c)
		}
	}
	return cs
}

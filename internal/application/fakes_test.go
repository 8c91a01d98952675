package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/domain/availability"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
	paymentDomain "github.com/mentorkita/service-booking/internal/domain/payment"
	reviewDomain "github.com/mentorkita/service-booking/internal/domain/review"
	"github.com/mentorkita/service-booking/internal/notify"
)

// In-memory fakes mirroring the transactional semantics of the GORM
// repositories closely enough for service-level tests.

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	payments map[uuid.UUID]bool
	open     bool
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[uuid.UUID]*bookingDomain.Booking),
		payments: make(map[uuid.UUID]bool),
		open:     true,
	}
}

func (r *fakeBookingRepo) Reserve(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return domain.NewConflictError("mentor is not available at the requested time")
	}
	for _, existing := range r.bookings {
		if existing.MentorProfileID() == bk.MentorProfileID() &&
			existing.Status().Blocks() &&
			existing.Overlaps(bk.ScheduledAt(), bk.EndsAt()) {
			return domain.NewConflictError("the requested slot is already booked")
		}
	}
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk, nil
}

func (r *fakeBookingRepo) FindByCode(_ context.Context, code string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.Code() == code {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", code)
}

func (r *fakeBookingRepo) FindConflict(_ context.Context, mentorProfileID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if excludeID != nil && bk.ID() == *excludeID {
			continue
		}
		if bk.MentorProfileID() == mentorProfileID && bk.Status().Blocks() && bk.Overlaps(start, end) {
			return bk, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) Transition(_ context.Context, id uuid.UUID, mutate func(*bookingDomain.Booking) error) (*bookingDomain.Booking, bookingDomain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, "", domain.NewNotFoundError("Booking", id.String())
	}
	oldStatus := bk.Status()
	if err := mutate(bk); err != nil {
		return nil, "", err
	}
	bk.IncrementVersion()
	return bk, oldStatus, nil
}

func (r *fakeBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *fakeBookingRepo) FindByStudentID(_ context.Context, studentID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(bk *bookingDomain.Booking) bool { return bk.StudentID() == studentID }, filter)
}

func (r *fakeBookingRepo) FindByMentorProfileID(_ context.Context, mentorProfileID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(bk *bookingDomain.Booking) bool { return bk.MentorProfileID() == mentorProfileID }, filter)
}

func (r *fakeBookingRepo) ListAll(_ context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.filter(func(*bookingDomain.Booking) bool { return true }, filter)
}

func (r *fakeBookingRepo) filter(match func(*bookingDomain.Booking) bool, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if !match(bk) {
			continue
		}
		if filter.Status != nil && bk.Status() != *filter.Status {
			continue
		}
		out = append(out, bk)
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) HasPayment(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id], nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	delete(r.bookings, id)
	return nil
}

type fakeMentorRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*mentor.Profile
	sessions map[uuid.UUID]int
}

func newFakeMentorRepo() *fakeMentorRepo {
	return &fakeMentorRepo{
		profiles: make(map[uuid.UUID]*mentor.Profile),
		sessions: make(map[uuid.UUID]int),
	}
}

func (r *fakeMentorRepo) FindByID(_ context.Context, id uuid.UUID) (*mentor.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.NewNotFoundError("MentorProfile", id.String())
	}
	return p, nil
}

func (r *fakeMentorRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*mentor.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.UserID() == userID {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("MentorProfile", userID.String())
}

func (r *fakeMentorRepo) Save(_ context.Context, p *mentor.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID()] = p
	return nil
}

func (r *fakeMentorRepo) Update(_ context.Context, p *mentor.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID()]; !ok {
		return domain.NewNotFoundError("MentorProfile", p.ID().String())
	}
	r.profiles[p.ID()] = p
	return nil
}

func (r *fakeMentorRepo) IncrementSessions(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return domain.NewNotFoundError("MentorProfile", id.String())
	}
	r.sessions[id]++
	return nil
}

func (r *fakeMentorRepo) setAggregate(id uuid.UUID, average float64, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.profiles[id]
	r.profiles[id] = mentor.ReconstructProfile(
		p.ID(), p.UserID(), p.HourlyRateCents(), p.Currency(), p.Available(),
		average, count, p.TotalSessions(), p.CreatedAt(), time.Now().UTC(),
	)
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*paymentDomain.Payment
	bookings *fakeBookingRepo
}

func newFakePaymentRepo(bookings *fakeBookingRepo) *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[uuid.UUID]*paymentDomain.Payment),
		bookings: bookings,
	}
}

func (r *fakePaymentRepo) CreateForBooking(ctx context.Context, p *paymentDomain.Payment) error {
	bk, err := r.bookings.FindByID(ctx, p.BookingID())
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.AmountCents() != bk.TotalAmountCents() {
		return domain.NewValidationError("payment amount does not match the booking total")
	}
	for _, existing := range r.payments {
		if existing.BookingID() == p.BookingID() && existing.Status() == paymentDomain.StatusPaid {
			return domain.NewConflictError("booking is already paid")
		}
	}
	r.payments[p.ID()] = p
	r.bookings.mu.Lock()
	r.bookings.payments[p.BookingID()] = true
	r.bookings.mu.Unlock()
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.NewNotFoundError("Payment", id.String())
	}
	return p, nil
}

func (r *fakePaymentRepo) FindByCode(_ context.Context, code string) (*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.Code() == code {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Payment", code)
}

func (r *fakePaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.BookingID() == bookingID {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Payment", bookingID.String())
}

func (r *fakePaymentRepo) Update(_ context.Context, p *paymentDomain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID()] = p
	return nil
}

func (r *fakePaymentRepo) FindByStudentID(ctx context.Context, studentID uuid.UUID, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	return r.filter(func(p *paymentDomain.Payment) bool {
		bk, err := r.bookings.FindByID(ctx, p.BookingID())
		return err == nil && bk.StudentID() == studentID
	})
}

func (r *fakePaymentRepo) FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	return r.filter(func(p *paymentDomain.Payment) bool {
		bk, err := r.bookings.FindByID(ctx, p.BookingID())
		return err == nil && bk.MentorProfileID() == mentorProfileID
	})
}

func (r *fakePaymentRepo) ListAll(_ context.Context, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	return r.filter(func(*paymentDomain.Payment) bool { return true })
}

func (r *fakePaymentRepo) filter(match func(*paymentDomain.Payment) bool) ([]*paymentDomain.Payment, int64, error) {
	r.mu.Lock()
	payments := make([]*paymentDomain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		payments = append(payments, p)
	}
	r.mu.Unlock()

	var out []*paymentDomain.Payment
	for _, p := range payments {
		if match(p) {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

type fakeReviewRepo struct {
	mu       sync.Mutex
	reviews  map[uuid.UUID]*reviewDomain.Review
	bookings *fakeBookingRepo
	mentors  *fakeMentorRepo
}

func newFakeReviewRepo(bookings *fakeBookingRepo, mentors *fakeMentorRepo) *fakeReviewRepo {
	return &fakeReviewRepo{
		reviews:  make(map[uuid.UUID]*reviewDomain.Review),
		bookings: bookings,
		mentors:  mentors,
	}
}

func (r *fakeReviewRepo) CreateWithAggregate(ctx context.Context, rv *reviewDomain.Review) error {
	bk, err := r.bookings.FindByID(ctx, rv.BookingID())
	if err != nil {
		return err
	}
	if bk.StudentID() != rv.StudentID() {
		return domain.NewForbiddenError("only the booking's student may review it")
	}
	if bk.Status() != bookingDomain.StatusCompleted {
		return domain.NewInvalidStateErrorf("only completed sessions can be reviewed, booking is %s", bk.Status())
	}
	r.mu.Lock()
	for _, existing := range r.reviews {
		if existing.BookingID() == rv.BookingID() {
			r.mu.Unlock()
			return domain.NewConflictError("booking has already been reviewed")
		}
	}
	r.reviews[rv.ID()] = rv
	r.mu.Unlock()
	r.recompute(rv.MentorProfileID())
	return nil
}

func (r *fakeReviewRepo) UpdateWithAggregate(_ context.Context, rv *reviewDomain.Review) error {
	r.mu.Lock()
	if _, ok := r.reviews[rv.ID()]; !ok {
		r.mu.Unlock()
		return domain.NewNotFoundError("Review", rv.ID().String())
	}
	r.reviews[rv.ID()] = rv
	r.mu.Unlock()
	r.recompute(rv.MentorProfileID())
	return nil
}

func (r *fakeReviewRepo) DeleteWithAggregate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	rv, ok := r.reviews[id]
	if !ok {
		r.mu.Unlock()
		return domain.NewNotFoundError("Review", id.String())
	}
	delete(r.reviews, id)
	r.mu.Unlock()
	r.recompute(rv.MentorProfileID())
	return nil
}

func (r *fakeReviewRepo) recompute(mentorProfileID uuid.UUID) {
	r.mu.Lock()
	var ratings []int
	for _, rv := range r.reviews {
		if rv.MentorProfileID() == mentorProfileID {
			ratings = append(ratings, rv.Rating())
		}
	}
	r.mu.Unlock()
	average, count := mentor.RatingAggregate(ratings)
	r.mentors.setAggregate(mentorProfileID, average, count)
}

func (r *fakeReviewRepo) FindByID(_ context.Context, id uuid.UUID) (*reviewDomain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, domain.NewNotFoundError("Review", id.String())
	}
	return rv, nil
}

func (r *fakeReviewRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*reviewDomain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.BookingID() == bookingID {
			return rv, nil
		}
	}
	return nil, domain.NewNotFoundError("Review", bookingID.String())
}

func (r *fakeReviewRepo) FindByMentorProfileID(_ context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*reviewDomain.Review, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reviewDomain.Review
	for _, rv := range r.reviews {
		if rv.MentorProfileID() == mentorProfileID {
			out = append(out, rv)
		}
	}
	return out, int64(len(out)), nil
}

type fakeWindowRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID]availability.WindowSet
}

func newFakeWindowRepo() *fakeWindowRepo {
	return &fakeWindowRepo{windows: make(map[uuid.UUID]availability.WindowSet)}
}

func (r *fakeWindowRepo) ReplaceForMentor(_ context.Context, mentorProfileID uuid.UUID, windows []*availability.Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[mentorProfileID] = windows
	return nil
}

func (r *fakeWindowRepo) FindForMentor(_ context.Context, mentorProfileID uuid.UUID) (availability.WindowSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows[mentorProfileID], nil
}

func (r *fakeWindowRepo) FindActiveForDay(_ context.Context, mentorProfileID uuid.UUID, day availability.Weekday) (availability.WindowSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out availability.WindowSet
	for _, w := range r.windows[mentorProfileID] {
		if w.Day() == day && w.Active() {
			out = append(out, w)
		}
	}
	return out, nil
}

type notification struct {
	event    string
	channels []string
	payload  interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *fakeNotifier) Notify(_ context.Context, eventName string, channels []string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{event: eventName, channels: channels, payload: payload})
}

func (n *fakeNotifier) last() (notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notification{}, false
	}
	return n.events[len(n.events)-1], true
}

var _ notify.Notifier = (*fakeNotifier)(nil)

package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/avetkin/flighttracker/internal/kafka"
	"github.com/avetkin/flighttracker/internal/payment"
	"github.com/avetkin/flighttracker/internal/repository"
	"github.com/google/uuid"
)

// taxesAndFees is the per-passenger surcharge, the same constant the
// flight detail page adds to the base fare for its "total price".
const taxesAndFees = 2500

const defaultCheckoutTimeout = 5 * time.Minute

type BookingUseCase interface {
	StartBooking(ctx context.Context, flightID int64) (*domain.BookingAttempt, error)
	GetAttempt(ctx context.Context, id string) (*domain.BookingAttempt, error)
	AddPassenger(ctx context.Context, id string) (*domain.BookingAttempt, error)
	UpdatePassenger(ctx context.Context, id string, index int, field, value string) (*domain.BookingAttempt, error)
	RemovePassenger(ctx context.Context, id string, index int) (*domain.BookingAttempt, error)
	UpdateContact(ctx context.Context, id string, field, value string) (*domain.BookingAttempt, error)
	Advance(ctx context.Context, id string) (*domain.BookingAttempt, error)
	Retreat(ctx context.Context, id string) (*domain.BookingAttempt, error)
	Total(ctx context.Context, id string) (int64, error)
	SubmitPayment(ctx context.Context, id string) (*domain.BookingAttempt, error)
	SubmitDemoPayment(ctx context.Context, id string) (*domain.BookingAttempt, error)
	OnPaymentOutcome(ctx context.Context, id string, outcome payment.Outcome) (*domain.BookingAttempt, error)
	ResolveCheckout(ctx context.Context, id, orderRef string, outcome payment.Outcome) (*domain.BookingAttempt, error)
	Discard(ctx context.Context, id string) error
	ListBookings(ctx context.Context, email string) ([]domain.BookingRecord, error)
}

type FlightLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// Recorder receives confirmed bookings; the session service implements
// it to append the reference and award loyalty points.
type Recorder interface {
	RecordBooking(ctx context.Context, rec domain.BookingRecord) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// CheckoutConfig carries the merchant side of the hosted checkout
// request.
type CheckoutConfig struct {
	Key          string
	Currency     string
	MerchantName string
	Image        string
	ThemeColor   string
	RetryMax     int
}

func defaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		Key:          "rzp_test_1DP5mmOlF5G5ag",
		Currency:     "INR",
		MerchantName: "FlightTracker",
		ThemeColor:   "#667eea",
		RetryMax:     3,
	}
}

type BookingService struct {
	mu       sync.Mutex
	attempts map[string]*domain.BookingAttempt

	flights  FlightLookup
	gateway  payment.Gateway
	recorder Recorder
	archive  repository.BookingArchive
	producer Producer

	bookingTopic       string
	notificationsTopic string

	checkout        CheckoutConfig
	checkoutTimeout time.Duration
}

type BookingServiceOption func(*BookingService)

func WithRecorder(r Recorder) BookingServiceOption {
	return func(s *BookingService) { s.recorder = r }
}

func WithArchive(a repository.BookingArchive) BookingServiceOption {
	return func(s *BookingService) { s.archive = a }
}

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) { s.notificationsTopic = topic }
}

func WithCheckoutConfig(cfg CheckoutConfig) BookingServiceOption {
	return func(s *BookingService) { s.checkout = cfg }
}

// WithCheckoutTimeout bounds how long an opened checkout may stay
// unresolved before the attempt is released back to the payment step.
func WithCheckoutTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.checkoutTimeout = d
		}
	}
}

func NewBookingService(flights FlightLookup, gateway payment.Gateway, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		attempts:        make(map[string]*domain.BookingAttempt),
		flights:         flights,
		gateway:         gateway,
		checkout:        defaultCheckoutConfig(),
		checkoutTimeout: defaultCheckoutTimeout,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) StartBooking(ctx context.Context, flightID int64) (*domain.BookingAttempt, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	attempt := &domain.BookingAttempt{
		ID:            uuid.NewString(),
		Flight:        flight,
		Passengers:    []domain.Passenger{},
		Step:          domain.StepPassengerDetails,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = attempt
	s.mu.Unlock()

	return clone(attempt), nil
}

func (s *BookingService) GetAttempt(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return clone(a), nil
}

func (s *BookingService) AddPassenger(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}

	a.Passengers = append(a.Passengers, domain.Passenger{SeatPreference: domain.SeatWindow})
	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (s *BookingService) UpdatePassenger(ctx context.Context, id string, index int, field, value string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(a.Passengers) {
		return nil, domain.ErrPassengerIndex
	}

	p := &a.Passengers[index]
	switch field {
	case "firstName":
		p.FirstName = value
	case "lastName":
		p.LastName = value
	case "age":
		age, err := strconv.Atoi(value)
		if err != nil || age <= 0 {
			return nil, fmt.Errorf("%w: age must be a positive integer", domain.ErrInvalidFieldValue)
		}
		p.Age = age
	case "gender":
		switch domain.Gender(value) {
		case domain.GenderMale, domain.GenderFemale, domain.GenderOther:
			p.Gender = domain.Gender(value)
		default:
			return nil, fmt.Errorf("%w: unknown gender %q", domain.ErrInvalidFieldValue, value)
		}
	case "seatPreference":
		switch domain.SeatPreference(value) {
		case domain.SeatWindow, domain.SeatAisle, domain.SeatMiddle:
			p.SeatPreference = domain.SeatPreference(value)
		default:
			return nil, fmt.Errorf("%w: unknown seat preference %q", domain.ErrInvalidFieldValue, value)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}

	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (s *BookingService) RemovePassenger(ctx context.Context, id string, index int) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(a.Passengers) {
		return nil, domain.ErrPassengerIndex
	}

	a.Passengers = append(a.Passengers[:index], a.Passengers[index+1:]...)
	a.UpdatedAt = time.Now()
	return clone(a), nil
}

// UpdateContact accepts free-form values; required-field checks belong
// to the presentation layer.
func (s *BookingService) UpdateContact(ctx context.Context, id string, field, value string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}

	switch field {
	case "email":
		a.Contact.Email = value
	case "phone":
		a.Contact.Phone = value
	case "firstName":
		a.Contact.FirstName = value
	case "lastName":
		a.Contact.LastName = value
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}

	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (s *BookingService) Advance(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}

	switch a.Step {
	case domain.StepPassengerDetails:
		if len(a.Passengers) == 0 {
			return nil, domain.ErrNoPassengers
		}
		a.Step = domain.StepContactInformation
	case domain.StepContactInformation:
		a.Step = domain.StepPayment
	case domain.StepPayment:
		// Confirmation is only reachable through a successful outcome.
		return nil, domain.ErrPaymentRequired
	case domain.StepConfirmation:
		return clone(a), nil
	}

	a.UpdatedAt = time.Now()
	return clone(a), nil
}

func (s *BookingService) Retreat(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}

	// A confirmed attempt is terminal; there is nothing to go back to.
	if a.Step > domain.StepPassengerDetails && a.Step != domain.StepConfirmation {
		a.Step--
		a.UpdatedAt = time.Now()
	}
	return clone(a), nil
}

func (s *BookingService) Total(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return total(a), nil
}

func (s *BookingService) SubmitPayment(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if a.Step != domain.StepPayment {
		return nil, domain.ErrNotAtPaymentStep
	}
	if a.PaymentPending {
		return nil, domain.ErrPaymentInProgress
	}
	if len(a.Passengers) == 0 {
		return nil, domain.ErrNoPassengers
	}

	now := time.Now()
	req := payment.CheckoutRequest{
		Key:         s.checkout.Key,
		Amount:      total(a) * 100,
		Currency:    s.checkout.Currency,
		Name:        s.checkout.MerchantName,
		Description: fmt.Sprintf("Flight booking - %s from %s to %s", a.Flight.Airline, a.Flight.From, a.Flight.To),
		Image:       s.checkout.Image,
		OrderRef:    payment.NewOrderRef(now),
		Prefill: payment.Prefill{
			Name:    a.Contact.FirstName + " " + a.Contact.LastName,
			Email:   a.Contact.Email,
			Contact: a.Contact.Phone,
		},
		Notes: map[string]string{
			"address":    "Flight booking payment",
			"flight_id":  strconv.FormatInt(a.Flight.ID, 10),
			"passengers": strconv.Itoa(len(a.Passengers)),
		},
		Theme: payment.Theme{Color: s.checkout.ThemeColor},
		Retry: payment.Retry{Enabled: true, MaxCount: s.checkout.RetryMax},
	}

	outcomes, err := s.gateway.Open(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("open checkout: %w", err)
	}

	a.OrderRef = req.OrderRef
	a.PaymentPending = true
	a.LastPaymentError = ""
	a.UpdatedAt = now

	go s.awaitOutcome(a.ID, req.OrderRef, outcomes)

	return clone(a), nil
}

// SubmitDemoPayment is the explicit bypass: it confirms the attempt
// without contacting the gateway. It is never substituted for a real
// outcome automatically.
func (s *BookingService) SubmitDemoPayment(ctx context.Context, id string) (*domain.BookingAttempt, error) {
	s.mu.Lock()
	a, err := s.get(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if a.Step != domain.StepPayment {
		s.mu.Unlock()
		return nil, domain.ErrNotAtPaymentStep
	}
	if a.PaymentPending {
		s.mu.Unlock()
		return nil, domain.ErrPaymentInProgress
	}
	if len(a.Passengers) == 0 {
		s.mu.Unlock()
		return nil, domain.ErrNoPassengers
	}
	s.mu.Unlock()

	return s.OnPaymentOutcome(ctx, id, payment.Outcome{
		Kind:      payment.OutcomeSucceeded,
		PaymentID: "demo_" + uuid.NewString()[:12],
	})
}

// OnPaymentOutcome is the callback entry point for in-process callers:
// the gateway goroutine and the demo bypass. Late or repeated outcomes
// against a confirmed attempt change nothing.
func (s *BookingService) OnPaymentOutcome(ctx context.Context, id string, outcome payment.Outcome) (*domain.BookingAttempt, error) {
	return s.applyOutcome(ctx, id, "", outcome)
}

// ResolveCheckout applies an outcome reported from outside the process.
// It is accepted only against the currently open checkout, so a caller
// cannot settle an attempt it never paid for.
func (s *BookingService) ResolveCheckout(ctx context.Context, id, orderRef string, outcome payment.Outcome) (*domain.BookingAttempt, error) {
	if orderRef == "" {
		return nil, domain.ErrCheckoutNotOpen
	}
	return s.applyOutcome(ctx, id, orderRef, outcome)
}

func (s *BookingService) applyOutcome(ctx context.Context, id, orderRef string, outcome payment.Outcome) (*domain.BookingAttempt, error) {
	s.mu.Lock()

	a, err := s.get(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if a.PaymentStatus == domain.PaymentStatusSuccess {
		snap := clone(a)
		s.mu.Unlock()
		return snap, nil
	}
	if orderRef != "" && (!a.PaymentPending || a.OrderRef != orderRef) {
		s.mu.Unlock()
		return nil, domain.ErrCheckoutNotOpen
	}

	now := time.Now()
	var record *domain.BookingRecord

	switch outcome.Kind {
	case payment.OutcomeDismissed:
		// Normal cancellation: no error surfaced, status stays pending.
		a.PaymentPending = false
	case payment.OutcomeFailed:
		if a.Step != domain.StepPayment {
			s.mu.Unlock()
			return nil, domain.ErrNotAtPaymentStep
		}
		a.PaymentPending = false
		a.PaymentStatus = domain.PaymentStatusFailed
		reason := outcome.Reason
		if reason == "" {
			reason = domain.ErrPaymentDeclined.Error()
		}
		a.LastPaymentError = reason
		a.UpdatedAt = now
	case payment.OutcomeSucceeded:
		// An outcome can only settle an attempt that reached the payment
		// step with someone to book.
		if a.Step != domain.StepPayment {
			s.mu.Unlock()
			return nil, domain.ErrNotAtPaymentStep
		}
		if len(a.Passengers) == 0 {
			s.mu.Unlock()
			return nil, domain.ErrNoPassengers
		}
		a.PaymentPending = false
		a.PaymentStatus = domain.PaymentStatusSuccess
		a.Step = domain.StepConfirmation
		a.BookingRef = newBookingRef(now)
		a.LastPaymentError = ""
		a.UpdatedAt = now
		record = &domain.BookingRecord{
			Reference:    a.BookingRef,
			FlightID:     a.Flight.ID,
			Airline:      a.Flight.Airline,
			From:         a.Flight.From,
			To:           a.Flight.To,
			Passengers:   len(a.Passengers),
			AmountPaid:   total(a),
			ContactEmail: a.Contact.Email,
			ConfirmedAt:  now,
		}
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown payment outcome %q", outcome.Kind)
	}

	snap := clone(a)
	s.mu.Unlock()

	if record != nil {
		s.confirm(ctx, *record)
	}
	return snap, nil
}

func (s *BookingService) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[id]; !ok {
		return domain.ErrAttemptNotFound
	}
	delete(s.attempts, id)
	return nil
}

func (s *BookingService) ListBookings(ctx context.Context, email string) ([]domain.BookingRecord, error) {
	if s.archive == nil {
		return []domain.BookingRecord{}, nil
	}
	return s.archive.ListByEmail(ctx, email)
}

func (s *BookingService) awaitOutcome(id, orderRef string, outcomes <-chan payment.Outcome) {
	ctx := context.Background()
	timer := time.NewTimer(s.checkoutTimeout)
	defer timer.Stop()

	select {
	case outcome, ok := <-outcomes:
		if !ok {
			outcome = payment.Outcome{Kind: payment.OutcomeDismissed}
		}
		if _, err := s.applyOutcome(ctx, id, orderRef, outcome); err != nil {
			log.Printf("WARNING: apply payment outcome for attempt %s: %v", id, err)
		}
	case <-timer.C:
		s.expireCheckout(id, orderRef)
	}
}

// expireCheckout releases an attempt whose checkout never resolved. The
// status stays pending: a timeout is an infrastructure condition, not a
// decline.
func (s *BookingService) expireCheckout(id, orderRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok || !a.PaymentPending || a.OrderRef != orderRef {
		return
	}
	a.PaymentPending = false
	a.LastPaymentError = domain.ErrGatewayUnavailable.Error()
	a.UpdatedAt = time.Now()
	log.Printf("checkout %s for attempt %s timed out", orderRef, id)
}

func (s *BookingService) confirm(ctx context.Context, rec domain.BookingRecord) {
	if s.recorder != nil {
		if err := s.recorder.RecordBooking(ctx, rec); err != nil {
			log.Printf("WARNING: record booking %s: %v", rec.Reference, err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Insert(ctx, rec); err != nil {
			log.Printf("WARNING: archive booking %s: %v", rec.Reference, err)
		}
	}
	if err := s.publish(ctx, "booking_confirmed", rec); err != nil {
		log.Printf("WARNING: publish booking_confirmed for %s: %v", rec.Reference, err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, rec domain.BookingRecord) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := bookingEvent(eventType, rec)
	if err := s.producer.Publish(ctx, s.bookingTopic, rec.Reference, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, rec.Reference, event)
	}
	return nil
}

func (s *BookingService) get(id string) (*domain.BookingAttempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

// total is recomputed on every use; the passenger list can change at
// any step before payment resolves.
func total(a *domain.BookingAttempt) int64 {
	return (a.Flight.BaseFare + taxesAndFees) * int64(len(a.Passengers))
}

func bookingEvent(eventType string, rec domain.BookingRecord) kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:        eventType,
		Reference:   rec.Reference,
		FlightID:    rec.FlightID,
		Airline:     rec.Airline,
		From:        rec.From,
		To:          rec.To,
		Passengers:  rec.Passengers,
		AmountPaid:  rec.AmountPaid,
		Email:       rec.ContactEmail,
		ConfirmedAt: rec.ConfirmedAt,
	}
}

func newBookingRef(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	return "FLT" + millis[len(millis)-6:]
}

func clone(a *domain.BookingAttempt) *domain.BookingAttempt {
	snap := *a
	snap.Passengers = append([]domain.Passenger(nil), a.Passengers...)
	snap.Total = total(a)
	return &snap
}

var _ BookingUseCase = (*BookingService)(nil)

package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	usersKey   = "session:users"
	sessionKey = "session:current_user"
)

const (
	welcomeBonusPoints = 100
	pointsPerBooking   = 50
)

// BlobStore is the key-value persistence behind the session: Redis in
// production, memory in tests. Get returns nil for an absent key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

type SessionUseCase interface {
	Current(ctx context.Context) (*domain.User, error)
	SignIn(ctx context.Context, input SignInInput) (*domain.User, error)
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*domain.User, error)
	RecordBooking(ctx context.Context, rec domain.BookingRecord) error
}

type SignInInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type RegisterInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ProfilePatch struct {
	FirstName      *string                `json:"first_name,omitempty"`
	LastName       *string                `json:"last_name,omitempty"`
	Phone          *string                `json:"phone,omitempty"`
	Notifications  *bool                  `json:"notifications,omitempty"`
	Newsletter     *bool                  `json:"newsletter,omitempty"`
	SeatPreference *domain.SeatPreference `json:"seat_preference,omitempty"`
}

type sessionBlob struct {
	Email string `json:"email"`
}

// SessionService holds every known identity in a single persisted set
// indexed by email; the session blob stores only a reference to the
// current one.
type SessionService struct {
	mu      sync.Mutex
	store   BlobStore
	users   map[string]domain.User
	current string
}

// NewSessionService loads persisted state. Corrupt blobs are cleared
// and treated as absent, never as a fatal condition.
func NewSessionService(ctx context.Context, store BlobStore) (*SessionService, error) {
	s := &SessionService{
		store: store,
		users: make(map[string]domain.User),
	}

	if data, err := store.Get(ctx, usersKey); err != nil {
		return nil, err
	} else if data != nil {
		if err := json.Unmarshal(data, &s.users); err != nil {
			log.Printf("WARN: corrupt user set, clearing: %v", err)
			s.users = make(map[string]domain.User)
			_ = store.Remove(ctx, usersKey)
		}
	}

	if data, err := store.Get(ctx, sessionKey); err != nil {
		return nil, err
	} else if data != nil {
		var blob sessionBlob
		if err := json.Unmarshal(data, &blob); err != nil {
			log.Printf("WARN: corrupt session, clearing: %v", err)
			_ = store.Remove(ctx, sessionKey)
		} else if _, ok := s.users[blob.Email]; ok {
			s.current = blob.Email
		} else {
			_ = store.Remove(ctx, sessionKey)
		}
	}

	return s, nil
}

func (s *SessionService) Current(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil, domain.ErrNoCurrentUser
	}
	u := s.users[s.current]
	return cloneUser(&u), nil
}

// SignIn replaces the current identity. A registered email must present
// its password; an unknown email signs in as a fresh guest identity.
func (s *SessionService) SignIn(ctx context.Context, input SignInInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	u, ok := s.users[input.Email]
	if ok && u.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)) != nil {
			return nil, domain.ErrInvalidCredentials
		}
		u.LastLoginAt = now
	} else if ok {
		u.LastLoginAt = now
	} else {
		u = domain.User{
			ID:            uuid.NewString(),
			FirstName:     input.FirstName,
			LastName:      input.LastName,
			Email:         input.Email,
			Phone:         input.Phone,
			JoinedAt:      now,
			LastLoginAt:   now,
			Preferences:   domain.DefaultPreferences(),
			Bookings:      []string{},
			LoyaltyPoints: 0,
		}
	}

	if err := s.commit(ctx, input.Email, u, true); err != nil {
		return nil, err
	}
	return cloneUser(&u), nil
}

func (s *SessionService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Password != input.ConfirmPassword {
		return nil, domain.ErrPasswordMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[input.Email]; ok && existing.PasswordHash != "" {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := domain.User{
		ID:            uuid.NewString(),
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         input.Email,
		Phone:         input.Phone,
		PasswordHash:  string(hash),
		JoinedAt:      now,
		LastLoginAt:   now,
		Preferences:   domain.DefaultPreferences(),
		Bookings:      []string{},
		LoyaltyPoints: welcomeBonusPoints,
	}

	if err := s.commit(ctx, input.Email, u, true); err != nil {
		return nil, err
	}
	return cloneUser(&u), nil
}

func (s *SessionService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, sessionKey); err != nil {
		return err
	}
	s.current = ""
	return nil
}

func (s *SessionService) UpdateProfile(ctx context.Context, patch ProfilePatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil, domain.ErrNoCurrentUser
	}

	u := s.users[s.current]
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Notifications != nil {
		u.Preferences.Notifications = *patch.Notifications
	}
	if patch.Newsletter != nil {
		u.Preferences.Newsletter = *patch.Newsletter
	}
	if patch.SeatPreference != nil {
		u.Preferences.SeatPreference = *patch.SeatPreference
	}

	if err := s.commit(ctx, s.current, u, false); err != nil {
		return nil, err
	}
	return cloneUser(&u), nil
}

// RecordBooking appends the reference to the current identity and
// awards loyalty points. Without a signed-in user it is a no-op: the
// demo allows booking as a guest.
func (s *SessionService) RecordBooking(ctx context.Context, rec domain.BookingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return nil
	}

	u := s.users[s.current]
	u.Bookings = append(u.Bookings, rec.Reference)
	u.LoyaltyPoints += pointsPerBooking
	return s.commit(ctx, s.current, u, false)
}

// commit applies the staged user (and optionally the current-session
// switch) only once the store accepted it, so the in-memory state never
// diverges from what was persisted.
func (s *SessionService) commit(ctx context.Context, email string, u domain.User, makeCurrent bool) error {
	prevUser, hadUser := s.users[email]
	prevCurrent := s.current

	s.users[email] = u
	if makeCurrent {
		s.current = email
	}
	if err := s.persist(ctx); err != nil {
		if hadUser {
			s.users[email] = prevUser
		} else {
			delete(s.users, email)
		}
		s.current = prevCurrent
		return err
	}
	return nil
}

func (s *SessionService) persist(ctx context.Context) error {
	data, err := json.Marshal(s.users)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, usersKey, data); err != nil {
		return err
	}

	if s.current == "" {
		return s.store.Remove(ctx, sessionKey)
	}
	blob, err := json.Marshal(sessionBlob{Email: s.current})
	if err != nil {
		return err
	}
	return s.store.Set(ctx, sessionKey, blob)
}

func cloneUser(u *domain.User) *domain.User {
	snap := *u
	snap.Bookings = append([]string(nil), u.Bookings...)
	return &snap
}

var _ SessionUseCase = (*SessionService)(nil)

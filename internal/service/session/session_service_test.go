package session

import (
	"context"
	"errors"
	"testing"

	"github.com/avetkin/flighttracker/internal/cache"
	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/stretchr/testify/assert"
)

// failingStore отказывает в записи, когда взведен флаг.
type failingStore struct {
	*cache.MemoryStore
	fail bool
}

func (f *failingStore) Set(ctx context.Context, key string, data []byte) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.Set(ctx, key, data)
}

func newService(t *testing.T, store BlobStore) *SessionService {
	t.Helper()
	service, err := NewSessionService(context.Background(), store)
	assert.NoError(t, err)
	return service
}

func TestSessionService_Current_NoSession(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	user, err := service.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)
	assert.Nil(t, user)
}

func TestSessionService_SignIn_GuestIdentity(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	user, err := service.SignIn(ctx, SignInInput{
		Email:     "guest@example.com",
		FirstName: "Asha",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "guest@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, int64(0), user.LoyaltyPoints)
	assert.Equal(t, domain.DefaultPreferences(), user.Preferences)

	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, user.Email, current.Email)
}

func TestSessionService_SignIn_EmptyEmail(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	user, err := service.SignIn(context.Background(), SignInInput{Email: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, user)
}

func TestSessionService_Register_WelcomeBonus(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	user, err := service.Register(ctx, RegisterInput{
		FirstName:       "Asha",
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(100), user.LoyaltyPoints)
	// Хэш не отдаётся наружу в открытом виде пароля
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)

	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "asha@example.com", current.Email)
}

func TestSessionService_Register_PasswordMismatch(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "guest@example.com"})
	assert.NoError(t, err)

	user, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret124",
	})

	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)
	assert.Nil(t, user)

	// Текущая сессия не затронута
	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "guest@example.com", current.Email)
}

func TestSessionService_Register_EmailTaken(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	first, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)

	second, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "other",
		ConfirmPassword: "other",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Nil(t, second)

	// Первая учетная запись остается текущей
	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
}

func TestSessionService_Register_UpgradesGuest(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "asha@example.com"})
	assert.NoError(t, err)

	// Гостевую запись без пароля можно зарегистрировать
	user, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestSessionService_SignIn_RegisteredRequiresPassword(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)
	assert.NoError(t, service.SignOut(ctx))

	user, err := service.SignIn(ctx, SignInInput{Email: "asha@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, user)

	user, err = service.SignIn(ctx, SignInInput{Email: "asha@example.com", Password: "secret123"})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), user.LoyaltyPoints)
}

func TestSessionService_SignOut(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "guest@example.com"})
	assert.NoError(t, err)

	assert.NoError(t, service.SignOut(ctx))

	_, err = service.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)
}

func TestSessionService_UpdateProfile(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "guest@example.com"})
	assert.NoError(t, err)

	name := "Asha"
	newsletter := false
	seat := domain.SeatAisle
	user, err := service.UpdateProfile(ctx, ProfilePatch{
		FirstName:      &name,
		Newsletter:     &newsletter,
		SeatPreference: &seat,
	})

	assert.NoError(t, err)
	assert.Equal(t, "Asha", user.FirstName)
	assert.False(t, user.Preferences.Newsletter)
	assert.True(t, user.Preferences.Notifications)
	assert.Equal(t, domain.SeatAisle, user.Preferences.SeatPreference)
}

func TestSessionService_UpdateProfile_NoSession(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	name := "Asha"
	user, err := service.UpdateProfile(context.Background(), ProfilePatch{FirstName: &name})
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)
	assert.Nil(t, user)
}

func TestSessionService_RecordBooking_AwardsPoints(t *testing.T) {
	service := newService(t, cache.NewMemoryStore())

	ctx := context.Background()
	_, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)

	err = service.RecordBooking(ctx, domain.BookingRecord{Reference: "FLT123456"})
	assert.NoError(t, err)

	user, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"FLT123456"}, user.Bookings)
	assert.Equal(t, int64(150), user.LoyaltyPoints)
}

func TestSessionService_RecordBooking_SignedOutIsNoop(t *testing.T) {
	store := cache.NewMemoryStore()
	service := newService(t, store)

	err := service.RecordBooking(context.Background(), domain.BookingRecord{Reference: "FLT123456"})
	assert.NoError(t, err)
}

func TestSessionService_Persistence_RoundTrip(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	first := newService(t, store)
	_, err := first.Register(ctx, RegisterInput{
		FirstName:       "Asha",
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)
	assert.NoError(t, first.RecordBooking(ctx, domain.BookingRecord{Reference: "FLT123456"}))

	// Новый сервис поверх того же стора видит и пользователя, и сессию
	second := newService(t, store)
	user, err := second.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, []string{"FLT123456"}, user.Bookings)
	assert.Equal(t, int64(150), user.LoyaltyPoints)
}

func TestSessionService_Persistence_SignOutSurvivesRestart(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	first := newService(t, store)
	_, err := first.SignIn(ctx, SignInInput{Email: "guest@example.com"})
	assert.NoError(t, err)
	assert.NoError(t, first.SignOut(ctx))

	second := newService(t, store)
	_, err = second.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)
}

func TestSessionService_Register_PersistFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: cache.NewMemoryStore()}
	service := newService(t, store)

	ctx := context.Background()
	store.fail = true
	user, err := service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.Error(t, err)
	assert.Nil(t, user)

	// Неудачная регистрация не оставляет ни сессии, ни пользователя
	_, err = service.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)

	store.fail = false
	user, err = service.Register(ctx, RegisterInput{
		Email:           "asha@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), user.LoyaltyPoints)
}

func TestSessionService_SignIn_PersistFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: cache.NewMemoryStore()}
	service := newService(t, store)

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "first@example.com"})
	assert.NoError(t, err)

	store.fail = true
	user, err := service.SignIn(ctx, SignInInput{Email: "second@example.com"})
	assert.Error(t, err)
	assert.Nil(t, user)

	// Текущей остается прежняя личность
	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "first@example.com", current.Email)
}

func TestSessionService_RecordBooking_PersistFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: cache.NewMemoryStore()}
	service := newService(t, store)

	ctx := context.Background()
	_, err := service.SignIn(ctx, SignInInput{Email: "asha@example.com"})
	assert.NoError(t, err)

	store.fail = true
	err = service.RecordBooking(ctx, domain.BookingRecord{Reference: "FLT123456"})
	assert.Error(t, err)

	current, err := service.Current(ctx)
	assert.NoError(t, err)
	assert.Empty(t, current.Bookings)
	assert.Equal(t, int64(0), current.LoyaltyPoints)
}

func TestNewSessionService_CorruptBlobsCleared(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, store.Set(ctx, "session:users", []byte("{not json")))
	assert.NoError(t, store.Set(ctx, "session:current_user", []byte("{not json")))

	service := newService(t, store)

	_, err := service.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)

	// Мусор удален из стора
	data, err := store.Get(ctx, "session:users")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestNewSessionService_DanglingSessionCleared(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	// Сессия ссылается на email, которого нет в наборе пользователей
	assert.NoError(t, store.Set(ctx, "session:current_user", []byte(`{"email":"ghost@example.com"}`)))

	service := newService(t, store)

	_, err := service.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCurrentUser)

	data, err := store.Get(ctx, "session:current_user")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

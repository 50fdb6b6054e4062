package domain

import "time"

type Preferences struct {
	Notifications  bool           `json:"notifications"`
	Newsletter     bool           `json:"newsletter"`
	SeatPreference SeatPreference `json:"seat_preference"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Notifications:  true,
		Newsletter:     true,
		SeatPreference: SeatWindow,
	}
}

// User is a signed-in identity. PasswordHash is empty for guest
// sign-ins that never registered.
type User struct {
	ID            string      `json:"id"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	PasswordHash  string      `json:"password_hash,omitempty"`
	JoinedAt      time.Time   `json:"joined_at"`
	LastLoginAt   time.Time   `json:"last_login_at"`
	Preferences   Preferences `json:"preferences"`
	Bookings      []string    `json:"bookings"`
	LoyaltyPoints int64       `json:"loyalty_points"`
}

package users

import "time"

// TimestampLayout renders CreatedAt of registered users on the wire (UTC,
// millisecond precision, Z suffix).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// SeedTimestampLayout renders CreatedAt of seeded records. Fractional seconds
// appear only when the seed has them, so the admin record reads
// 2024-01-01T00:00:00Z.
const SeedTimestampLayout = time.RFC3339Nano

// User is a registered account.
type User struct {
	ID        int       `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Email     string    `json:"email" yaml:"email"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// seeded selects SeedTimestampLayout; set by NewStore for seed records.
	seeded bool
}

// CreatedAtString is the wire form of CreatedAt.
func (u User) CreatedAtString() string {
	layout := TimestampLayout
	if u.seeded {
		layout = SeedTimestampLayout
	}
	return u.CreatedAt.UTC().Format(layout)
}

// DefaultSeed returns the record every fresh store starts with.
func DefaultSeed() []User {
	return []User{
		{
			ID:        1,
			Username:  "admin",
			Email:     "admin@example.com",
			CreatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

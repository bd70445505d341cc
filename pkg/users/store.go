package users

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUsernameTaken is returned by Create when the username is already registered.
var ErrUsernameTaken = errors.New("username already exists")

// Store is a thread-safe, append-only user registry.
type Store struct {
	mu     sync.RWMutex
	users  []User
	nextID int
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeed replaces the default seed records. Seeds are kept in the given order.
func WithSeed(seed ...User) Option {
	return func(s *Store) {
		s.users = append([]User(nil), seed...)
	}
}

// NewStore creates a Store holding DefaultSeed unless WithSeed says otherwise.
// The id counter starts one above the highest seeded id.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users: DefaultSeed(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.nextID = 1
	for i, u := range s.users {
		s.users[i].seeded = true
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s
}

// Create registers a new user. The duplicate check and the append happen under
// the same lock; on conflict the store is left untouched.
func (s *Store) Create(username, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return User{}, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
		}
	}

	u := User{
		ID:        s.nextID,
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	s.nextID++
	s.users = append(s.users, u)
	return u, nil
}

// Get looks a user up by id.
func (s *Store) Get(id int) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// List returns a snapshot of every user in insertion order.
func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// Count returns the number of stored users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// NextID returns the id the next successful Create will assign.
func (s *Store) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/familytree/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo mirrors the Postgres users repo in process: emails are unique
// after lowercasing and lookups return the same sentinel errors.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[user.NormalizeEmail(email)]
	return ok, nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	u.ID = uuid.NewString()
	return r.insert(u)
}

func (r *UsersRepo) InsertOAuthUser(_ context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.PasswordHash = ""
	return r.insert(u)
}

func (r *UsersRepo) insert(u user.User) (user.User, error) {
	now := time.Now().UTC()
	u.Email = user.NormalizeEmail(u.Email)
	u.CreatedAt = &now
	u.UpdatedAt = &now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) UpdateOAuthProfile(_ context.Context, id, email, photo string) (user.User, error) {
	email = user.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if other, taken := r.byEmail[email]; taken && other != id {
		return user.User{}, user.ErrEmailTaken
	}

	delete(r.byEmail, u.Email)
	now := time.Now().UTC()
	u.Email = email
	u.Photo = photo
	u.UpdatedAt = &now

	r.items[id] = u
	r.byEmail[email] = id

	return u, nil
}

// Delete removes a user; used to simulate a row vanishing under a live token.
func (r *UsersRepo) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.items[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.items, id)
	}
}

func (r *UsersRepo) Ping(context.Context) error { return nil }

package user

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	users  map[int]User
	nextID int
}

// NewMemoryRepository returns a Repository kept in process memory. Nothing
// survives a restart.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:  make(map[int]User),
		nextID: 1,
	}
}

func (r *memoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(user.Username, user.Email, 0) {
		return nil, ErrDuplicate
	}

	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user

	created := *user
	return &created, nil
}

func (r *memoryRepository) GetAll(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id int) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.find(func(u User) bool { return u.Username == username })
}

func (r *memoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.find(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) find(match func(User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if r.conflicts(user.Username, user.Email, user.ID) {
		return ErrDuplicate
	}

	user.CreatedAt = existing.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// conflicts must be called with r.mu held.
func (r *memoryRepository) conflicts(username, email string, exceptID int) bool {
	for id, u := range r.users {
		if id == exceptID {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

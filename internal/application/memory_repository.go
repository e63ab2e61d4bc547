package application

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	apps   map[int]Application
	nextID int
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		apps:   make(map[int]Application),
		nextID: 1,
	}
}

func (r *memoryRepository) Create(ctx context.Context, app *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app.ID = r.nextID
	r.nextID++
	if app.Status == "" {
		app.Status = StatusPending
	}
	r.apps[app.ID] = *app

	created := *app
	return &created, nil
}

func (r *memoryRepository) List(ctx context.Context, status Status) ([]Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]Application, 0, len(r.apps))
	for _, app := range r.apps {
		if status == "" || app.Status == status {
			apps = append(apps, app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id int) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &app, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id int, status Status) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	app.Status = status
	r.apps[id] = app
	return &app, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[id]; !ok {
		return ErrNotFound
	}
	delete(r.apps, id)
	return nil
}

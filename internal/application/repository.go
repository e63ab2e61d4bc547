package application

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"admissions-service/common/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, app *Application) (*Application, error)
	// List returns applications oldest first; an empty status means all.
	List(ctx context.Context, status Status) ([]Application, error)
	GetByID(ctx context.Context, id int) (*Application, error)
	UpdateStatus(ctx context.Context, id int, status Status) (*Application, error)
	Delete(ctx context.Context, id int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, app *Application) (*Application, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(app).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "applications", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *repository) List(ctx context.Context, status Status) ([]Application, error) {
	start := time.Now()
	apps := []Application{}
	query := r.db.NewSelect().Model(&apps).Order("id ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "applications", time.Since(start), err)

	return apps, err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Application, error) {
	start := time.Now()
	app := new(Application)
	err := r.db.NewSelect().Model(app).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "applications", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

// UpdateStatus runs as one UPDATE ... RETURNING statement.
func (r *repository) UpdateStatus(ctx context.Context, id int, status Status) (*Application, error) {
	start := time.Now()
	app := new(Application)
	result, err := r.db.NewUpdate().
		Model(app).
		Set("status = ?", status).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "applications", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}
	return app, nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Application)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "applications", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

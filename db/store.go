package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/models"
)

// ErrNotFound is returned when a configuration does not exist in a scope.
var ErrNotFound = core.ErrConfigurationNotFound

// Store persists configurations and search runs.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save inserts the configuration or replaces the one with the same scope and
// name.
func (s *Store) Save(ctx context.Context, c core.Configuration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	row, err := models.FromCore(c)
	if err != nil {
		return err
	}
	row.ID = uuid.NewString()

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "language", "pattern", "loose", "constraints", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save configuration %s: %w", c.Name, err)
	}
	return nil
}

// Get loads one configuration.
func (s *Store) Get(ctx context.Context, scope, name string) (*core.Configuration, error) {
	var row models.Configuration
	err := s.db.WithContext(ctx).Where("scope = ? AND name = ?", scope, name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", name, err)
	}
	c, err := row.ToCore()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes one configuration.
func (s *Store) Delete(ctx context.Context, scope, name string) error {
	res := s.db.WithContext(ctx).Where("scope = ? AND name = ?", scope, name).Delete(&models.Configuration{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete configuration %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// List returns the configurations of a scope ordered by name.
func (s *Store) List(ctx context.Context, scope string) ([]core.Configuration, error) {
	var rows []models.Configuration
	if err := s.db.WithContext(ctx).Where("scope = ?", scope).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	out := make([]core.Configuration, 0, len(rows))
	for _, r := range rows {
		c, err := r.ToCore()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Registry returns a ConfigurationRegistry that reads the given scope.
func (s *Store) Registry(scope string) core.ConfigurationRegistry {
	return &scopedRegistry{store: s, scope: scope}
}

type scopedRegistry struct {
	store *Store
	scope string
}

func (r *scopedRegistry) FindByName(ctx context.Context, name string) (*core.Configuration, bool, error) {
	c, err := r.store.Get(ctx, r.scope, name)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// RecordRun stores the outcome of a search. ID and StartedAt are filled in
// when empty.
func (s *Store) RecordRun(ctx context.Context, run *models.SearchRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record search run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs of a scope, newest first.
func (s *Store) Runs(ctx context.Context, scope string, limit int) ([]models.SearchRun, error) {
	var runs []models.SearchRun
	q := s.db.WithContext(ctx).Where("scope = ?", scope).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list search runs: %w", err)
	}
	return runs, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"go.uber.org/zap"
)

// UnitRepository implements the repositories.UnitRepository interface
type UnitRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewUnitRepository creates a new organizational unit repository
func NewUnitRepository(db *DB, logger *zap.Logger) repositories.UnitRepository {
	return &UnitRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new club or board
func (r *UnitRepository) Create(ctx context.Context, unit *models.OrganizationalUnit) error {
	query := `
		INSERT INTO organizational_units (id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		unit.ID,
		unit.Name,
		unit.Kind,
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	if err != nil {
		return translateError("create unit", err)
	}

	r.logger.Debug("unit created",
		zap.String("id", unit.ID.String()),
		zap.String("kind", string(unit.Kind)),
		zap.String("name", unit.Name))
	return nil
}

// GetByID retrieves a unit by ID
func (r *UnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error) {
	query := `
		SELECT id, name, kind, created_at, updated_at
		FROM organizational_units
		WHERE id = $1
	`

	unit := &models.OrganizationalUnit{}
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id).Scan(
		&unit.ID,
		&unit.Name,
		&unit.Kind,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("get unit %s", id), err)
	}

	return unit, nil
}

// List retrieves units of one kind, or every unit when kind is empty
func (r *UnitRepository) List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error) {
	query := `
		SELECT id, name, kind, created_at, updated_at
		FROM organizational_units
		WHERE ($1 = '' OR kind = $1)
		ORDER BY kind, name
	`

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []*models.OrganizationalUnit
	for rows.Next() {
		unit := &models.OrganizationalUnit{}
		if err := rows.Scan(
			&unit.ID,
			&unit.Name,
			&unit.Kind,
			&unit.CreatedAt,
			&unit.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unit rows: %w", err)
	}

	return units, nil
}

// Rename updates a unit's name; kind is never written after insert
func (r *UnitRepository) Rename(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time) error {
	query := `
		UPDATE organizational_units
		SET name = $2,
		    updated_at = $3
		WHERE id = $1
	`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, id, name, updatedAt)
	if err != nil {
		return translateError("rename unit", err)
	}
	if err := requireRowsAffected(fmt.Sprintf("rename unit %s", id), result); err != nil {
		return err
	}

	r.logger.Debug("unit renamed", zap.String("id", id.String()), zap.String("name", name))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UnitRepository) WithTx(tx repositories.Transaction) repositories.UnitRepository {
	return &UnitRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

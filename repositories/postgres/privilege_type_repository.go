package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"go.uber.org/zap"
)

// PrivilegeTypeRepository implements the repositories.PrivilegeTypeRepository interface
type PrivilegeTypeRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewPrivilegeTypeRepository creates a new privilege type repository
func NewPrivilegeTypeRepository(db *DB, logger *zap.Logger) repositories.PrivilegeTypeRepository {
	return &PrivilegeTypeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new privilege type
func (r *PrivilegeTypeRepository) Create(ctx context.Context, pt *models.PrivilegeType) error {
	query := `
		INSERT INTO privilege_types (id, position_title, capabilities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		pt.ID,
		pt.PositionTitle,
		pt.Capabilities,
		pt.CreatedAt,
		pt.UpdatedAt,
	)
	if err != nil {
		return translateError("create privilege type", err)
	}

	r.logger.Debug("privilege type created",
		zap.String("id", pt.ID.String()),
		zap.String("title", pt.PositionTitle))
	return nil
}

// GetByID retrieves a privilege type by ID
func (r *PrivilegeTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error) {
	query := `
		SELECT id, position_title, capabilities, created_at, updated_at
		FROM privilege_types
		WHERE id = $1
	`

	pt := &models.PrivilegeType{}
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id).Scan(
		&pt.ID,
		&pt.PositionTitle,
		&pt.Capabilities,
		&pt.CreatedAt,
		&pt.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("get privilege type %s", id), err)
	}

	return pt, nil
}

// GetByIDs retrieves every privilege type whose id is in ids
func (r *PrivilegeTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PrivilegeType, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, position_title, capabilities, created_at, updated_at
		FROM privilege_types
		WHERE id = ANY($1)
	`

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to query privilege types: %w", err)
	}
	defer rows.Close()

	return scanPrivilegeTypes(rows)
}

// List retrieves the whole catalog ordered by title
func (r *PrivilegeTypeRepository) List(ctx context.Context) ([]*models.PrivilegeType, error) {
	query := `
		SELECT id, position_title, capabilities, created_at, updated_at
		FROM privilege_types
		ORDER BY position_title
	`

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query privilege types: %w", err)
	}
	defer rows.Close()

	return scanPrivilegeTypes(rows)
}

// Update updates a privilege type's title and capabilities
func (r *PrivilegeTypeRepository) Update(ctx context.Context, pt *models.PrivilegeType) error {
	query := `
		UPDATE privilege_types
		SET position_title = $2,
		    capabilities = $3,
		    updated_at = $4
		WHERE id = $1
	`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		pt.ID,
		pt.PositionTitle,
		pt.Capabilities,
		pt.UpdatedAt,
	)
	if err != nil {
		return translateError("update privilege type", err)
	}
	if err := requireRowsAffected(fmt.Sprintf("update privilege type %s", pt.ID), result); err != nil {
		return err
	}

	r.logger.Debug("privilege type updated", zap.String("id", pt.ID.String()))
	return nil
}

// Delete deletes a privilege type. Postgres rejects the delete while any
// assignment still references the row.
func (r *PrivilegeTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM privilege_types WHERE id = $1`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete privilege type", err)
	}
	if err := requireRowsAffected(fmt.Sprintf("delete privilege type %s", id), result); err != nil {
		return err
	}

	r.logger.Debug("privilege type deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *PrivilegeTypeRepository) WithTx(tx repositories.Transaction) repositories.PrivilegeTypeRepository {
	return &PrivilegeTypeRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanPrivilegeTypes(rows rowScanner) ([]*models.PrivilegeType, error) {
	var types []*models.PrivilegeType
	for rows.Next() {
		pt := &models.PrivilegeType{}
		if err := rows.Scan(
			&pt.ID,
			&pt.PositionTitle,
			&pt.Capabilities,
			&pt.CreatedAt,
			&pt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan privilege type: %w", err)
		}
		types = append(types, pt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating privilege type rows: %w", err)
	}
	return types, nil
}

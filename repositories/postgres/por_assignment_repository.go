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

const porColumns = `id, user_id, privilege_type_id, club_id, board_id, start_date, end_date, created_by, created_at, updated_at`

// PORAssignmentRepository implements the repositories.PORAssignmentRepository interface
type PORAssignmentRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewPORAssignmentRepository creates a new POR ledger repository
func NewPORAssignmentRepository(db *DB, logger *zap.Logger) repositories.PORAssignmentRepository {
	return &PORAssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new assignment
func (r *PORAssignmentRepository) Create(ctx context.Context, a *models.PORAssignment) error {
	query := `
		INSERT INTO por_assignments (` + porColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.PrivilegeTypeID,
		a.Unit.ClubID,
		a.Unit.BoardID,
		a.StartDate,
		a.EndDate,
		a.CreatedBy,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return translateError("create POR assignment", err)
	}

	r.logger.Debug("POR assignment created",
		zap.String("id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("unit_id", a.Unit.UnitID().String()))
	return nil
}

// GetByID retrieves an assignment by ID
func (r *PORAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error) {
	query := `SELECT ` + porColumns + ` FROM por_assignments WHERE id = $1`

	a := &models.PORAssignment{}
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.PrivilegeTypeID,
		&a.Unit.ClubID,
		&a.Unit.BoardID,
		&a.StartDate,
		&a.EndDate,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("get POR assignment %s", id), err)
	}

	return a, nil
}

// ListByUser retrieves every assignment held by a user regardless of dates.
// Filtering by the current instant is the evaluator's job.
func (r *PORAssignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error) {
	query := `
		SELECT ` + porColumns + `
		FROM por_assignments
		WHERE user_id = $1
		ORDER BY start_date, id
	`
	return r.list(ctx, query, userID)
}

// ListByUnit retrieves every assignment scoped to a club or board
func (r *PORAssignmentRepository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error) {
	query := `
		SELECT ` + porColumns + `
		FROM por_assignments
		WHERE club_id = $1 OR board_id = $1
		ORDER BY start_date, id
	`
	return r.list(ctx, query, unitID)
}

// CountActiveByPrivilegeType counts assignments that have not ended by at.
// Assignments starting in the future are included.
func (r *PORAssignmentRepository) CountActiveByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID, at time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM por_assignments
		WHERE privilege_type_id = $1
		  AND (end_date IS NULL OR end_date >= $2)
	`

	var count int
	if err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, privilegeTypeID, at).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count POR assignments: %w", err)
	}
	return count, nil
}

// ListUserIDsByPrivilegeType returns the distinct holders of a privilege type
func (r *PORAssignmentRepository) ListUserIDsByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT user_id FROM por_assignments WHERE privilege_type_id = $1`

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, privilegeTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query POR holders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating POR holder rows: %w", err)
	}
	return ids, nil
}

// Update updates privilege type, unit and dates of an assignment
func (r *PORAssignmentRepository) Update(ctx context.Context, a *models.PORAssignment) error {
	query := `
		UPDATE por_assignments
		SET privilege_type_id = $2,
		    club_id = $3,
		    board_id = $4,
		    start_date = $5,
		    end_date = $6,
		    updated_at = $7
		WHERE id = $1
	`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		a.ID,
		a.PrivilegeTypeID,
		a.Unit.ClubID,
		a.Unit.BoardID,
		a.StartDate,
		a.EndDate,
		a.UpdatedAt,
	)
	if err != nil {
		return translateError("update POR assignment", err)
	}
	if err := requireRowsAffected(fmt.Sprintf("update POR assignment %s", a.ID), result); err != nil {
		return err
	}

	r.logger.Debug("POR assignment updated", zap.String("id", a.ID.String()))
	return nil
}

// Delete hard deletes an assignment
func (r *PORAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM por_assignments WHERE id = $1`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete POR assignment", err)
	}
	if err := requireRowsAffected(fmt.Sprintf("delete POR assignment %s", id), result); err != nil {
		return err
	}

	r.logger.Debug("POR assignment deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *PORAssignmentRepository) WithTx(tx repositories.Transaction) repositories.PORAssignmentRepository {
	return &PORAssignmentRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

func (r *PORAssignmentRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.PORAssignment, error) {
	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query POR assignments: %w", err)
	}
	defer rows.Close()

	var out []*models.PORAssignment
	for rows.Next() {
		a := &models.PORAssignment{}
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.PrivilegeTypeID,
			&a.Unit.ClubID,
			&a.Unit.BoardID,
			&a.StartDate,
			&a.EndDate,
			&a.CreatedBy,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan POR assignment: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating POR assignment rows: %w", err)
	}
	return out, nil
}

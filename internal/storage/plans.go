package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fitcoach/internal/models"
)

const planColumns = `id, user_id, name, description, plan_text, is_active, is_archived,
	preview_hour, created_at, updated_at`

func scanPlan(row pgx.Row) (models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.PlanText,
		&p.Active, &p.Archived, &p.PreviewHour, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPlans(rows pgx.Rows) ([]models.Plan, error) {
	defer rows.Close()
	var out []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListActivePlans returns every user's active, non-archived plan.
func (db *DB) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+planColumns+` FROM workout_plans WHERE is_active AND NOT is_archived ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying active plans: %w", err)
	}
	return collectPlans(rows)
}

// ListPlans returns a user's plans, newest first. Archived plans are included
// only when includeArchived is set.
func (db *DB) ListPlans(ctx context.Context, userID int64, includeArchived bool) ([]models.Plan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+planColumns+` FROM workout_plans
		 WHERE user_id = $1 AND ($2 OR NOT is_archived)
		 ORDER BY created_at DESC`, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	return collectPlans(rows)
}

func (db *DB) GetPlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM workout_plans WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	return &p, nil
}

// ActivePlan returns the user's active plan or ErrNotFound.
func (db *DB) ActivePlan(ctx context.Context, userID int64) (*models.Plan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM workout_plans
		 WHERE user_id = $1 AND is_active AND NOT is_archived`, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("active plan for user %d", userID))
	}
	return &p, nil
}

// CreatePlan inserts an inactive plan with a fresh ID.
func (db *DB) CreatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`INSERT INTO workout_plans (id, user_id, name, description, plan_text, preview_hour)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+planColumns,
		plan.ID, plan.UserID, plan.Name, plan.Description, plan.PlanText, plan.PreviewHour))
	if err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}
	return &p, nil
}

// UpdatePlanText replaces the stored plan text.
func (db *DB) UpdatePlanText(ctx context.Context, userID int64, id uuid.UUID, text string) (*models.Plan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`UPDATE workout_plans SET plan_text = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING `+planColumns, id, userID, text))
	if err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	return &p, nil
}

// SetPreviewHour sets or clears (nil) the hour the plan's preview goes out.
func (db *DB) SetPreviewHour(ctx context.Context, userID int64, id uuid.UUID, hour *int) (*models.Plan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`UPDATE workout_plans SET preview_hour = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING `+planColumns, id, userID, hour))
	if err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	return &p, nil
}

// ActivatePlan makes the plan the user's only active plan.
func (db *DB) ActivatePlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE workout_plans SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND is_active AND id <> $2`, userID, id); err != nil {
		return nil, fmt.Errorf("deactivating plans: %w", err)
	}
	p, err := scanPlan(tx.QueryRow(ctx,
		`UPDATE workout_plans SET is_active = TRUE, is_archived = FALSE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING `+planColumns, id, userID))
	if err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing activation: %w", err)
	}
	return &p, nil
}

// ArchivePlan archives and deactivates the plan.
func (db *DB) ArchivePlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	p, err := scanPlan(db.Pool.QueryRow(ctx,
		`UPDATE workout_plans SET is_archived = TRUE, is_active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING `+planColumns, id, userID))
	if err != nil {
		return nil, notFound(err, "plan "+id.String())
	}
	return &p, nil
}

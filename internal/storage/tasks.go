package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fitcoach/internal/models"
)

const taskColumns = `id, user_id, title, completed, created_at, last_reset_at`

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Completed, &t.CreatedAt, &t.LastResetAt)
	return t, err
}

func collectTasks(rows pgx.Rows) ([]models.Task, error) {
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasks returns all of a user's tasks in creation order.
func (db *DB) ListTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+taskColumns+` FROM daily_tasks WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListIncompleteTasks returns a user's tasks that are not completed.
func (db *DB) ListIncompleteTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+taskColumns+` FROM daily_tasks
		 WHERE user_id = $1 AND NOT completed ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying incomplete tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListTaskOwners returns the IDs of users that have at least one task.
func (db *DB) ListTaskOwners(ctx context.Context) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `SELECT DISTINCT user_id FROM daily_tasks ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying task owners: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (db *DB) CreateTask(ctx context.Context, userID int64, title string) (*models.Task, error) {
	t, err := scanTask(db.Pool.QueryRow(ctx,
		`INSERT INTO daily_tasks (user_id, title) VALUES ($1, $2) RETURNING `+taskColumns,
		userID, title))
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return &t, nil
}

func (db *DB) GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error) {
	t, err := scanTask(db.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM daily_tasks WHERE id = $1 AND user_id = $2`, taskID, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("task %d", taskID))
	}
	return &t, nil
}

// ToggleTask flips a task's completion and adds or removes its completion on
// day (YYYY-MM-DD) in one transaction.
func (db *DB) ToggleTask(ctx context.Context, userID, taskID int64, day string) (*models.Task, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	t, err := scanTask(tx.QueryRow(ctx,
		`UPDATE daily_tasks SET completed = NOT completed
		 WHERE id = $1 AND user_id = $2 RETURNING `+taskColumns, taskID, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("task %d", taskID))
	}

	if t.Completed {
		_, err = tx.Exec(ctx,
			`INSERT INTO task_completions (task_id, completed_on) VALUES ($1, $2::date)
			 ON CONFLICT DO NOTHING`, taskID, day)
	} else {
		_, err = tx.Exec(ctx,
			`DELETE FROM task_completions WHERE task_id = $1 AND completed_on = $2::date`, taskID, day)
	}
	if err != nil {
		return nil, fmt.Errorf("updating completion history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing toggle: %w", err)
	}
	return &t, nil
}

func (db *DB) DeleteTask(ctx context.Context, userID, taskID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM daily_tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

// ResetTasks locks the user's task rows, lets decide choose the new task
// states and the completion record, and writes both in one transaction.
// It returns false when decide returns no record.
func (db *DB) ResetTasks(ctx context.Context, userID int64, decide func([]models.Task) ([]models.Task, *models.CompletionRecord)) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx,
		`SELECT `+taskColumns+` FROM daily_tasks WHERE user_id = $1 ORDER BY id FOR UPDATE`, userID)
	if err != nil {
		return false, fmt.Errorf("locking tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return false, err
	}

	next, rec := decide(tasks)
	if rec == nil {
		return false, nil
	}

	batch := &pgx.Batch{}
	for _, t := range next {
		batch.Queue(`UPDATE daily_tasks SET completed = $2, last_reset_at = $3 WHERE id = $1`,
			t.ID, t.Completed, t.LastResetAt)
	}
	batch.Queue(`INSERT INTO task_completion_records
		(user_id, record_date, tasks_total, tasks_completed, completion_rate)
		VALUES ($1, $2::date, $3, $4, $5)
		ON CONFLICT (user_id, record_date) DO UPDATE
		SET tasks_total = EXCLUDED.tasks_total,
		    tasks_completed = EXCLUDED.tasks_completed,
		    completion_rate = EXCLUDED.completion_rate`,
		rec.UserID, rec.Date.Format(time.DateOnly), rec.TasksTotal, rec.TasksCompleted, rec.CompletionRate)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("writing reset: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing reset: %w", err)
	}
	return true, nil
}

// CompletionDates returns the days a task was completed, newest first.
func (db *DB) CompletionDates(ctx context.Context, taskID int64) ([]time.Time, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT completed_on FROM task_completions WHERE task_id = $1 ORDER BY completed_on DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

// CompletionRecords returns a user's daily records on or after since
// (YYYY-MM-DD), newest first.
func (db *DB) CompletionRecords(ctx context.Context, userID int64, since string) ([]models.CompletionRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, record_date, tasks_total, tasks_completed, completion_rate
		 FROM task_completion_records
		 WHERE user_id = $1 AND record_date >= $2::date
		 ORDER BY record_date DESC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying completion records: %w", err)
	}
	defer rows.Close()

	var out []models.CompletionRecord
	for rows.Next() {
		var r models.CompletionRecord
		if err := rows.Scan(&r.UserID, &r.Date, &r.TasksTotal, &r.TasksCompleted, &r.CompletionRate); err != nil {
			return nil, fmt.Errorf("scanning completion record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

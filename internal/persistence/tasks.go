package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/chorewheel/internal/scheduler"
)

const taskColumns = `id, household_id, title, due_date, repeat_interval, repeat_unit,
	enable_rotation, assigned_to, additional_assignees, required_persons, excluded_members,
	is_completed, completed_by, completed_at, skipped_dates`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveTask inserts a task (ID 0) or updates an existing one. On insert the
// generated ID is written back to task.ID. A non-nil entry is appended to the
// activity log in the same transaction, with its TaskID defaulting to the
// task's.
func (s *SQLiteStore) SaveTask(ctx context.Context, task *scheduler.Task, entry *ActivityEntry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserting := task.ID == 0
	if err := writeTaskWithActivity(ctx, tx, task, entry); err != nil {
		if inserting {
			task.ID = 0
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if inserting {
			task.ID = 0
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeTaskWithActivity(ctx context.Context, tx *sql.Tx, task *scheduler.Task, entry *ActivityEntry) error {
	if err := writeTask(ctx, tx, task); err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	if entry.TaskID == 0 {
		entry.TaskID = task.ID
	}
	return insertActivity(ctx, tx, entry)
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID scheduler.TaskID) (*scheduler.Task, error) {
	return readTask(ctx, s.db, taskID)
}

// ListTasks returns all tasks of a household ordered by ID.
func (s *SQLiteStore) ListTasks(ctx context.Context, householdID scheduler.HouseholdID) ([]*scheduler.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE household_id = ?
		ORDER BY id
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*scheduler.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask reads a task, applies fn and writes the result back, all inside
// one serializable transaction. This is the read-modify-write boundary for
// completion, skip and restore: if fn fails nothing is written.
func (s *SQLiteStore) UpdateTask(ctx context.Context, taskID scheduler.TaskID, fn TaskMutation) (*scheduler.Task, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := readTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	updated, entry, err := fn(current)
	if err != nil {
		return nil, err
	}
	if updated.ID != taskID || updated.HouseholdID != current.HouseholdID {
		return nil, fmt.Errorf("task mutation changed identity of task %d", taskID)
	}

	if err := writeTask(ctx, tx, updated); err != nil {
		return nil, err
	}
	if entry != nil {
		if err := insertActivity(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// DeleteTask removes a task. Its dependency edges go with it. A non-nil entry
// is appended to the activity log in the same transaction.
func (s *SQLiteStore) DeleteTask(ctx context.Context, taskID scheduler.TaskID, entry *ActivityEntry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	if entry != nil {
		if err := insertActivity(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeTask(ctx context.Context, q queryer, task *scheduler.Task) error {
	var interval sql.NullInt64
	var unit sql.NullString
	if task.Repeat != nil {
		interval = sql.NullInt64{Int64: int64(task.Repeat.Interval), Valid: true}
		unit = sql.NullString{String: string(task.Repeat.Unit), Valid: true}
	}

	var assignedTo sql.NullInt64
	if task.Assigned.Primary != 0 {
		assignedTo = sql.NullInt64{Int64: int64(task.Assigned.Primary), Valid: true}
	}
	var completedBy sql.NullInt64
	if task.CompletedBy != nil {
		completedBy = sql.NullInt64{Int64: int64(*task.CompletedBy), Valid: true}
	}

	args := []any{
		task.HouseholdID, task.Title, formatTime(task.DueDate), interval, unit,
		task.EnableRotation, assignedTo, joinMembers(task.Assigned.Additional), task.RequiredPersons,
		joinMembers(task.ExcludedMembers), task.IsCompleted, completedBy, formatTime(task.CompletedAt),
		strings.Join(task.SkippedDates, ","),
	}

	if task.ID == 0 {
		res, err := q.ExecContext(ctx, `
			INSERT INTO tasks (household_id, title, due_date, repeat_interval, repeat_unit,
				enable_rotation, assigned_to, additional_assignees, required_persons, excluded_members,
				is_completed, completed_by, completed_at, skipped_dates)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read task id: %w", err)
		}
		task.ID = scheduler.TaskID(id)
		return nil
	}

	res, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			household_id = ?, title = ?, due_date = ?, repeat_interval = ?, repeat_unit = ?,
			enable_rotation = ?, assigned_to = ?, additional_assignees = ?, required_persons = ?,
			excluded_members = ?, is_completed = ?, completed_by = ?, completed_at = ?,
			skipped_dates = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, append(args, task.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", task.ID, ErrNotFound)
	}
	return nil
}

func readTask(ctx context.Context, q queryer, taskID scheduler.TaskID) (*scheduler.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

func scanTask(row rowScanner) (*scheduler.Task, error) {
	var (
		task                          scheduler.Task
		dueDate, completedAt          sql.NullString
		interval, assignedTo, doneBy  sql.NullInt64
		unit                          sql.NullString
		additional, excluded, skipped sql.NullString
	)

	err := row.Scan(&task.ID, &task.HouseholdID, &task.Title, &dueDate, &interval, &unit,
		&task.EnableRotation, &assignedTo, &additional, &task.RequiredPersons, &excluded,
		&task.IsCompleted, &doneBy, &completedAt, &skipped)
	if err != nil {
		return nil, err
	}

	if task.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	if interval.Valid && unit.Valid {
		task.Repeat = &scheduler.Rule{Interval: int(interval.Int64), Unit: scheduler.Unit(unit.String)}
	}
	if assignedTo.Valid {
		task.Assigned.Primary = scheduler.MemberID(assignedTo.Int64)
	}
	if doneBy.Valid {
		by := scheduler.MemberID(doneBy.Int64)
		task.CompletedBy = &by
	}
	if task.Assigned.Additional, err = splitMembers(additional.String); err != nil {
		return nil, err
	}
	if task.ExcludedMembers, err = splitMembers(excluded.String); err != nil {
		return nil, err
	}
	if skipped.String != "" {
		task.SkippedDates = strings.Split(skipped.String, ",")
	}
	return &task, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func joinMembers(ids []scheduler.MemberID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}

func splitMembers(s string) ([]scheduler.MemberID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]scheduler.MemberID, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse member id %q: %w", p, err)
		}
		ids = append(ids, scheduler.MemberID(id))
	}
	return ids, nil
}

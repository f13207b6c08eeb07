package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// activityTimeLayout is fixed width so created_at sorts lexically.
const activityTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AppendActivity stores an activity entry. Missing ID and CreatedAt are filled in.
func (s *SQLiteStore) AppendActivity(ctx context.Context, entry *ActivityEntry) error {
	return insertActivity(ctx, s.db, entry)
}

// ListActivity returns the newest entries of a household first. limit <= 0
// returns everything.
func (s *SQLiteStore) ListActivity(ctx context.Context, householdID scheduler.HouseholdID, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, task_id, member_id, kind, detail, created_at
		FROM activity_log
		WHERE household_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, householdID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var (
			e                ActivityEntry
			taskID, memberID sql.NullInt64
			createdAt        string
		)
		if err := rows.Scan(&e.ID, &e.HouseholdID, &taskID, &memberID, &e.Kind, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.TaskID = scheduler.TaskID(taskID.Int64)
		e.MemberID = scheduler.MemberID(memberID.Int64)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse activity timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return entries, nil
}

func insertActivity(ctx context.Context, q queryer, entry *ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var taskID, memberID sql.NullInt64
	if entry.TaskID != 0 {
		taskID = sql.NullInt64{Int64: int64(entry.TaskID), Valid: true}
	}
	if entry.MemberID != 0 {
		memberID = sql.NullInt64{Int64: int64(entry.MemberID), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO activity_log (id, household_id, task_id, member_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.HouseholdID, taskID, memberID, entry.Kind, entry.Detail,
		entry.CreatedAt.UTC().Format(activityTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

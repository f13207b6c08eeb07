package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		household_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_members_household ON members(household_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		household_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		due_date TEXT,
		repeat_interval INTEGER,
		repeat_unit TEXT,
		enable_rotation INTEGER NOT NULL DEFAULT 0,
		assigned_to INTEGER,
		additional_assignees TEXT,
		required_persons INTEGER NOT NULL DEFAULT 1,
		excluded_members TEXT,
		is_completed INTEGER NOT NULL DEFAULT 0,
		completed_by INTEGER,
		completed_at TEXT,
		skipped_dates TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_household ON tasks(household_id);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		household_id INTEGER NOT NULL,
		prerequisite_id INTEGER NOT NULL,
		dependent_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (prerequisite_id, dependent_id),
		FOREIGN KEY (prerequisite_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (dependent_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_household ON task_dependencies(household_id);

	CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		household_id INTEGER NOT NULL,
		task_id INTEGER,
		member_id INTEGER,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_activity_log_household_created
		ON activity_log(household_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

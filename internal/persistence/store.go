package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// ErrNotFound is returned when a household, member or task does not exist.
var ErrNotFound = errors.New("not found")

// Household is the unit every task, member and dependency edge belongs to.
type Household struct {
	ID   scheduler.HouseholdID
	Name string
}

// ActivityKind classifies activity log entries.
type ActivityKind string

const (
	ActivityCompleted          ActivityKind = "completed"
	ActivityAdvanced           ActivityKind = "advanced"
	ActivityRotated            ActivityKind = "rotated"
	ActivitySkipped            ActivityKind = "skipped"
	ActivityRestored           ActivityKind = "restored"
	ActivityCreated            ActivityKind = "created"
	ActivityDeleted            ActivityKind = "deleted"
	ActivityDependencyLinked   ActivityKind = "dependency_linked"
	ActivityDependencyUnlinked ActivityKind = "dependency_unlinked"
)

// ActivityEntry is one line of a household's activity log.
type ActivityEntry struct {
	ID          string
	HouseholdID scheduler.HouseholdID
	TaskID      scheduler.TaskID   // 0 when not about a single task
	MemberID    scheduler.MemberID // 0 when no member acted
	Kind        ActivityKind
	Detail      string
	CreatedAt   time.Time
}

// TaskMutation transforms a task read inside a transaction. It returns the
// replacement task and an optional activity entry written in the same
// transaction. Returning an error rolls everything back.
type TaskMutation func(task *scheduler.Task) (*scheduler.Task, *ActivityEntry, error)

// GraphMutation changes a household's dependency graph inside a transaction.
type GraphMutation func(graph *scheduler.DependencyGraph) (*ActivityEntry, error)

// Store defines the persistence interface for households, tasks, dependency
// edges and the activity log.
type Store interface {
	// Households and members
	SaveHousehold(ctx context.Context, h *Household) error
	ListHouseholds(ctx context.Context) ([]Household, error)
	SaveMember(ctx context.Context, m *scheduler.Member) error
	ListMembers(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.Member, error)

	// Tasks
	SaveTask(ctx context.Context, task *scheduler.Task, entry *ActivityEntry) error
	GetTask(ctx context.Context, taskID scheduler.TaskID) (*scheduler.Task, error)
	ListTasks(ctx context.Context, householdID scheduler.HouseholdID) ([]*scheduler.Task, error)
	UpdateTask(ctx context.Context, taskID scheduler.TaskID, fn TaskMutation) (*scheduler.Task, error)
	DeleteTask(ctx context.Context, taskID scheduler.TaskID, entry *ActivityEntry) error

	// Dependency graph
	LoadGraph(ctx context.Context, householdID scheduler.HouseholdID) (*scheduler.DependencyGraph, error)
	UpdateGraph(ctx context.Context, householdID scheduler.HouseholdID, fn GraphMutation) (*scheduler.DependencyGraph, error)

	// Activity log
	AppendActivity(ctx context.Context, entry *ActivityEntry) error
	ListActivity(ctx context.Context, householdID scheduler.HouseholdID, limit int) ([]ActivityEntry, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// modernc.org/sqlite doesn't support _foreign_keys in the connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return openStore(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named shared-cache database so stores never see
// each other's rows.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:chorewheel-%s?mode=memory&cache=shared", uuid.NewString())
	return openStore(ctx, connStr)
}

func openStore(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are per connection; a single connection keeps the pragma
	// in force and gives transactions exclusive access.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

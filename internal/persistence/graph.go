package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// LoadGraph builds a household's dependency graph from its tasks and edges.
func (s *SQLiteStore) LoadGraph(ctx context.Context, householdID scheduler.HouseholdID) (*scheduler.DependencyGraph, error) {
	return loadGraph(ctx, s.db, householdID)
}

// UpdateGraph loads the household graph inside a serializable transaction,
// applies fn and writes back the edges that changed. The cycle check in fn
// and the insert therefore see the same edge set.
func (s *SQLiteStore) UpdateGraph(ctx context.Context, householdID scheduler.HouseholdID, fn GraphMutation) (*scheduler.DependencyGraph, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	graph, err := loadGraph(ctx, tx, householdID)
	if err != nil {
		return nil, err
	}
	before := edgeSet(graph.Edges())

	entry, err := fn(graph)
	if err != nil {
		return nil, err
	}
	after := edgeSet(graph.Edges())

	for e := range before {
		if after[e] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM task_dependencies WHERE prerequisite_id = ? AND dependent_id = ?
		`, e.Prerequisite, e.Dependent); err != nil {
			return nil, fmt.Errorf("failed to delete dependency %d -> %d: %w", e.Prerequisite, e.Dependent, err)
		}
	}
	for e := range after {
		if before[e] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_dependencies (household_id, prerequisite_id, dependent_id)
			VALUES (?, ?, ?)
		`, householdID, e.Prerequisite, e.Dependent); err != nil {
			return nil, fmt.Errorf("failed to insert dependency %d -> %d: %w", e.Prerequisite, e.Dependent, err)
		}
	}
	if entry != nil {
		if err := insertActivity(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return graph, nil
}

func loadGraph(ctx context.Context, q queryer, householdID scheduler.HouseholdID) (*scheduler.DependencyGraph, error) {
	graph := scheduler.NewDependencyGraph(householdID)

	ids, err := q.QueryContext(ctx, `SELECT id FROM tasks WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	for ids.Next() {
		var id scheduler.TaskID
		if err := ids.Scan(&id); err != nil {
			ids.Close()
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		graph.AddTask(id)
	}
	ids.Close()
	if err := ids.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT prerequisite_id, dependent_id
		FROM task_dependencies
		WHERE household_id = ?
		ORDER BY prerequisite_id, dependent_id
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e scheduler.Edge
		if err := rows.Scan(&e.Prerequisite, &e.Dependent); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if err := graph.AddEdge(e.Prerequisite, e.Dependent); err != nil {
			return nil, fmt.Errorf("stored dependency %d -> %d is invalid: %w", e.Prerequisite, e.Dependent, err)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return graph, nil
}

func edgeSet(edges []scheduler.Edge) map[scheduler.Edge]bool {
	set := make(map[scheduler.Edge]bool, len(edges))
	for _, e := range edges {
		set[e] = true
	}
	return set
}

package chores

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

// LinkDependency makes dependent wait for prerequisite. Self links, unknown
// tasks, duplicates and links that would close a cycle are rejected and
// nothing is written.
func (s *Service) LinkDependency(ctx context.Context, householdID scheduler.HouseholdID, prerequisite, dependent scheduler.TaskID) error {
	if err := s.checkHousehold(ctx, householdID, prerequisite, dependent); err != nil {
		return err
	}

	key := scheduler.HouseholdKey(householdID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.now()
	_, err := s.store.UpdateGraph(ctx, householdID, func(g *scheduler.DependencyGraph) (*persistence.ActivityEntry, error) {
		if err := g.AddEdge(prerequisite, dependent); err != nil {
			return nil, err
		}
		return &persistence.ActivityEntry{
			HouseholdID: householdID,
			TaskID:      dependent,
			Kind:        persistence.ActivityDependencyLinked,
			Detail:      fmt.Sprintf("task %d now waits for task %d", dependent, prerequisite),
			CreatedAt:   now,
		}, nil
	})
	if err != nil {
		return err
	}

	s.publish(events.TopicDependency, events.DependencyLinkedEvent{
		HouseholdID:  householdID,
		Prerequisite: prerequisite,
		Dependent:    dependent,
		Timestamp:    now,
	})
	return nil
}

// UnlinkDependency removes an edge. Removing an absent edge is a no-op.
func (s *Service) UnlinkDependency(ctx context.Context, householdID scheduler.HouseholdID, prerequisite, dependent scheduler.TaskID) error {
	key := scheduler.HouseholdKey(householdID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.now()
	var removed bool
	_, err := s.store.UpdateGraph(ctx, householdID, func(g *scheduler.DependencyGraph) (*persistence.ActivityEntry, error) {
		if !g.HasEdge(prerequisite, dependent) {
			return nil, nil
		}
		g.RemoveEdge(prerequisite, dependent)
		removed = true
		return &persistence.ActivityEntry{
			HouseholdID: householdID,
			TaskID:      dependent,
			Kind:        persistence.ActivityDependencyUnlinked,
			Detail:      fmt.Sprintf("task %d no longer waits for task %d", dependent, prerequisite),
			CreatedAt:   now,
		}, nil
	})
	if err != nil {
		return err
	}

	if removed {
		s.publish(events.TopicDependency, events.DependencyUnlinkedEvent{
			HouseholdID:  householdID,
			Prerequisite: prerequisite,
			Dependent:    dependent,
			Timestamp:    now,
		})
	}
	return nil
}

// DependenciesOf returns the prerequisites and follow-ups of a task.
func (s *Service) DependenciesOf(ctx context.Context, householdID scheduler.HouseholdID, taskID scheduler.TaskID) (scheduler.Edges, error) {
	g, err := s.graphWith(ctx, householdID, taskID)
	if err != nil {
		return scheduler.Edges{}, err
	}
	return g.EdgesOf(taskID), nil
}

// AvailableTasksFor lists the household tasks that may still be linked to
// taskID in either direction.
func (s *Service) AvailableTasksFor(ctx context.Context, householdID scheduler.HouseholdID, taskID scheduler.TaskID) ([]scheduler.TaskID, error) {
	g, err := s.graphWith(ctx, householdID, taskID)
	if err != nil {
		return nil, err
	}
	return g.AvailableTasks(taskID), nil
}

// ProjectOrder returns the household's tasks with every prerequisite ahead of
// its dependents.
func (s *Service) ProjectOrder(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.TaskID, error) {
	g, err := s.store.LoadGraph(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return g.Order()
}

// ReadyTasks lists open tasks whose prerequisites are all closed. Recurring
// tasks are never closed, so they only ever block their follow-ups.
func (s *Service) ReadyTasks(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.TaskID, error) {
	g, err := s.store.LoadGraph(ctx, householdID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, householdID)
	if err != nil {
		return nil, err
	}

	closed := make(map[scheduler.TaskID]bool, len(tasks))
	for _, t := range tasks {
		closed[t.ID] = t.IsCompleted
	}
	return g.Ready(func(id scheduler.TaskID) bool { return closed[id] }), nil
}

func (s *Service) graphWith(ctx context.Context, householdID scheduler.HouseholdID, taskID scheduler.TaskID) (*scheduler.DependencyGraph, error) {
	if err := s.checkHousehold(ctx, householdID, taskID); err != nil {
		return nil, err
	}
	return s.store.LoadGraph(ctx, householdID)
}

// checkHousehold verifies every task exists and belongs to householdID.
func (s *Service) checkHousehold(ctx context.Context, householdID scheduler.HouseholdID, ids ...scheduler.TaskID) error {
	for _, id := range ids {
		task, err := s.store.GetTask(ctx, id)
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("task %d: %w", id, scheduler.ErrUnknownTask)
		}
		if err != nil {
			return err
		}
		if task.HouseholdID != householdID {
			return fmt.Errorf("task %d in household %d: %w", id, householdID, ErrWrongHousehold)
		}
	}
	return nil
}

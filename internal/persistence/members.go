package persistence

import (
	"context"
	"fmt"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// SaveHousehold inserts a household (ID 0) or renames an existing one.
func (s *SQLiteStore) SaveHousehold(ctx context.Context, h *Household) error {
	if h.ID == 0 {
		res, err := s.db.ExecContext(ctx, `INSERT INTO households (name) VALUES (?)`, h.Name)
		if err != nil {
			return fmt.Errorf("failed to insert household: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read household id: %w", err)
		}
		h.ID = scheduler.HouseholdID(id)
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO households (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, h.ID, h.Name)
	if err != nil {
		return fmt.Errorf("failed to save household: %w", err)
	}
	return nil
}

// ListHouseholds returns every household ordered by ID.
func (s *SQLiteStore) ListHouseholds(ctx context.Context) ([]Household, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM households ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query households: %w", err)
	}
	defer rows.Close()

	var households []Household
	for rows.Next() {
		var h Household
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		households = append(households, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating households: %w", err)
	}
	return households, nil
}

// SaveMember inserts a member (ID 0) or updates an existing one.
func (s *SQLiteStore) SaveMember(ctx context.Context, m *scheduler.Member) error {
	if m.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO members (household_id, name, active) VALUES (?, ?, ?)
		`, m.HouseholdID, m.Name, m.Active)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read member id: %w", err)
		}
		m.ID = scheduler.MemberID(id)
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, household_id, name, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			household_id = excluded.household_id,
			name = excluded.name,
			active = excluded.active
	`, m.ID, m.HouseholdID, m.Name, m.Active)
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

// ListMembers returns a household's members ordered by ID, active or not.
func (s *SQLiteStore) ListMembers(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, name, active
		FROM members
		WHERE household_id = ?
		ORDER BY id
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []scheduler.Member
	for rows.Next() {
		var m scheduler.Member
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Active); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

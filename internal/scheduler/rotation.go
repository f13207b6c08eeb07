package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// EligiblePool returns the ids of active members that are not excluded,
// ordered by id ascending. That order is the rotation order.
func EligiblePool(members []Member, excluded []MemberID) []MemberID {
	skip := memberSet(excluded)
	pool := make([]MemberID, 0, len(members))
	for _, m := range members {
		if !m.Active || skip[m.ID] {
			continue
		}
		pool = append(pool, m.ID)
	}
	return sortedUnique(pool)
}

// NextAssignee picks the member after current in the eligible pool, wrapping
// to the first one. If current is not in the pool (for example because it was
// just excluded) the first eligible member is returned. A single-member pool
// always returns that member.
func NextAssignee(eligible []MemberID, excluded []MemberID, current MemberID) (MemberID, error) {
	pool := filterExcluded(eligible, excluded)
	if len(pool) == 0 {
		return 0, ErrNoEligibleMembers
	}

	i := sort.Search(len(pool), func(i int) bool { return pool[i] >= current })
	if i < len(pool) && pool[i] == current {
		return pool[(i+1)%len(pool)], nil
	}
	return pool[0], nil
}

// ValidateRotationConfig rejects rotation setups the pool cannot staff.
func ValidateRotationConfig(eligible []MemberID, excluded []MemberID, requiredPersons int) error {
	if requiredPersons < 1 {
		return fmt.Errorf("%w: required persons must be at least 1, got %d", ErrInvalidRule, requiredPersons)
	}
	pool := filterExcluded(eligible, excluded)
	if len(pool) == 0 {
		return ErrNoEligibleMembers
	}
	if len(pool) < requiredPersons {
		return fmt.Errorf("%w: %d required, %d eligible", ErrInsufficientEligibleMembers, requiredPersons, len(pool))
	}
	return nil
}

// Slot is one future occurrence in a rotation schedule. Assignee == 0 means
// the slot is still open.
type Slot struct {
	Date     time.Time `json:"date"`
	Assignee MemberID  `json:"assignee,omitempty"`
}

// AutoFillSchedule assigns eligible members round-robin to the open slots.
// Slots that already have an assignee are left alone and do not consume a
// turn; the cycle continues as if only the open slots existed. The order of
// eligible is kept as given.
func AutoFillSchedule(eligible []MemberID, slots []Slot) ([]Slot, error) {
	out := make([]Slot, len(slots))
	copy(out, slots)

	pos := 0
	for i := range out {
		if out[i].Assignee != 0 {
			continue
		}
		if len(eligible) == 0 {
			return nil, ErrNoEligibleMembers
		}
		out[i].Assignee = eligible[pos%len(eligible)]
		pos++
	}
	return out, nil
}

// OccurrenceSlots lists the next count occurrences of rule starting at from
// (inclusive), stepping over skipped dates. It is the usual input to
// AutoFillSchedule. A negative count is rejected with ErrInvalidRule.
func OccurrenceSlots(from time.Time, rule Rule, skipped []string, count, maxSkipSteps int) ([]Slot, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: occurrence count must not be negative, got %d", ErrInvalidRule, count)
	}
	if maxSkipSteps <= 0 {
		maxSkipSteps = DefaultMaxSkipSteps
	}
	probe := &Task{SkippedDates: skipped}

	slots := make([]Slot, 0, count)
	cur := from
	steps := 0
	for len(slots) < count {
		if IsSkipped(probe, CalendarDate(cur)) {
			steps++
			if steps > maxSkipSteps {
				return nil, ErrRecurrenceExhausted
			}
		} else {
			steps = 0
			slots = append(slots, Slot{Date: cur})
		}
		next, err := rule.Next(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return slots, nil
}

func filterExcluded(eligible, excluded []MemberID) []MemberID {
	skip := memberSet(excluded)
	pool := make([]MemberID, 0, len(eligible))
	for _, id := range eligible {
		if !skip[id] {
			pool = append(pool, id)
		}
	}
	return sortedUnique(pool)
}

func memberSet(ids []MemberID) map[MemberID]bool {
	set := make(map[MemberID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedUnique(ids []MemberID) []MemberID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

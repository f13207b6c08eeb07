package chores

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

// ErrInvalidInput wraps struct validation failures of TaskInput and MemberInput.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

// TaskInput describes a new task.
type TaskInput struct {
	HouseholdID scheduler.HouseholdID `validate:"required"`
	Title       string                `validate:"required,max=200"`
	DueDate     *time.Time

	// RepeatInterval and RepeatUnit are set together or not at all.
	RepeatInterval int    `validate:"omitempty,min=1"`
	RepeatUnit     string `validate:"omitempty,max=16"`

	EnableRotation  bool
	AssignedTo      scheduler.MemberID
	Additional      []scheduler.MemberID
	RequiredPersons int `validate:"omitempty,min=1"`
	ExcludedMembers []scheduler.MemberID
	SkippedDates    []string `validate:"dive,datetime=2006-01-02"`
}

// MemberInput describes a new household member.
type MemberInput struct {
	HouseholdID scheduler.HouseholdID `validate:"required"`
	Name        string                `validate:"required,max=100"`
}

// CreateHousehold stores a new household.
func (s *Service) CreateHousehold(ctx context.Context, name string) (*persistence.Household, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required,max=100"); err != nil {
		return nil, fmt.Errorf("%w: household name: %v", ErrInvalidInput, err)
	}
	h := &persistence.Household{Name: name}
	if err := s.store.SaveHousehold(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// AddMember stores a new active member.
func (s *Service) AddMember(ctx context.Context, in MemberInput) (*scheduler.Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	m := &scheduler.Member{HouseholdID: in.HouseholdID, Name: in.Name, Active: true}
	if err := s.store.SaveMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMemberActive toggles whether a member takes part in rotation.
func (s *Service) SetMemberActive(ctx context.Context, householdID scheduler.HouseholdID, memberID scheduler.MemberID, active bool) error {
	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.ID == memberID {
			m.Active = active
			return s.store.SaveMember(ctx, &m)
		}
	}
	return fmt.Errorf("member %d: %w", memberID, ErrNotMember)
}

// CreateTask validates and stores a new task. A rotating task without an
// explicit assignee starts with the first eligible member.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*scheduler.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	task := &scheduler.Task{
		HouseholdID:     in.HouseholdID,
		Title:           in.Title,
		DueDate:         in.DueDate,
		EnableRotation:  in.EnableRotation,
		Assigned:        scheduler.Assignment{Primary: in.AssignedTo, Additional: in.Additional},
		RequiredPersons: in.RequiredPersons,
		ExcludedMembers: in.ExcludedMembers,
	}
	if task.RequiredPersons == 0 {
		task.RequiredPersons = 1
	}

	if in.RepeatInterval != 0 || in.RepeatUnit != "" {
		unit, err := scheduler.ParseUnit(in.RepeatUnit)
		if err != nil {
			return nil, err
		}
		rule := scheduler.Rule{Interval: in.RepeatInterval, Unit: unit}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		task.Repeat = &rule
	}

	if len(in.SkippedDates) > 0 {
		if !task.IsRecurring() {
			return nil, fmt.Errorf("skipped dates on one-off task: %w", scheduler.ErrNotRecurring)
		}
		dates, err := scheduler.NormalizeSkippedDates(in.SkippedDates)
		if err != nil {
			return nil, err
		}
		task.SkippedDates = dates
	}

	members, err := s.store.ListMembers(ctx, in.HouseholdID)
	if err != nil {
		return nil, err
	}
	if err := checkAssignment(task, members); err != nil {
		return nil, err
	}

	if task.EnableRotation {
		pool := scheduler.EligiblePool(members, nil)
		if err := scheduler.ValidateRotationConfig(pool, task.ExcludedMembers, task.RequiredPersons); err != nil {
			return nil, err
		}
		if task.Assigned.Primary == 0 {
			first, err := scheduler.NextAssignee(pool, task.ExcludedMembers, 0)
			if err != nil {
				return nil, err
			}
			task.Assigned.Primary = first
		} else if !slices.Contains(scheduler.EligiblePool(members, task.ExcludedMembers), task.Assigned.Primary) {
			return nil, fmt.Errorf("assignee %d is not eligible for rotation: %w", task.Assigned.Primary, scheduler.ErrNoEligibleMembers)
		}
	}

	entry := &persistence.ActivityEntry{
		HouseholdID: task.HouseholdID,
		MemberID:    task.Assigned.Primary,
		Kind:        persistence.ActivityCreated,
		Detail:      fmt.Sprintf("created %s", task.Title),
		CreatedAt:   s.now(),
	}
	if task.Repeat != nil {
		entry.Detail = fmt.Sprintf("created %s (%s)", task.Title, task.Repeat)
	}
	if err := s.store.SaveTask(ctx, task, entry); err != nil {
		return nil, err
	}
	return task, nil
}

// checkAssignment enforces that every assignee is a household member and the
// primary assignee is not excluded.
func checkAssignment(task *scheduler.Task, members []scheduler.Member) error {
	if task.Assigned.Primary != 0 {
		if !hasMember(members, task.Assigned.Primary) {
			return fmt.Errorf("assignee %d: %w", task.Assigned.Primary, ErrNotMember)
		}
		if task.IsExcluded(task.Assigned.Primary) {
			return fmt.Errorf("assignee %d is excluded: %w", task.Assigned.Primary, scheduler.ErrNoEligibleMembers)
		}
	}
	for _, id := range task.Assigned.Additional {
		if !hasMember(members, id) {
			return fmt.Errorf("additional assignee %d: %w", id, ErrNotMember)
		}
	}
	for _, id := range task.ExcludedMembers {
		if !hasMember(members, id) {
			return fmt.Errorf("excluded member %d: %w", id, ErrNotMember)
		}
	}
	return nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.StructNamespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

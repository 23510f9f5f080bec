package policy

import (
	"testing"

	"github.com/google/uuid"

	"taskflow/app/database"
)

func TestCan(t *testing.T) {
	scrumMaster := &database.User{ID: uuid.New(), Role: database.RoleScrumMaster}
	employee := &database.User{ID: uuid.New(), Role: database.RoleEmployee}
	superuser := &database.User{ID: uuid.New(), Role: database.RoleEmployee, IsSuperuser: true}

	assignedToEmployee := &database.Task{ID: uuid.New(), AssigneeID: &employee.ID}
	assignedToOther := &database.Task{ID: uuid.New(), AssigneeID: &scrumMaster.ID}
	unassigned := &database.Task{ID: uuid.New()}

	testCases := []struct {
		name    string
		actor   *database.User
		action  Action
		task    *database.Task
		allowed bool
	}{
		{"scrum master creates project", scrumMaster, ActionCreateProject, nil, true},
		{"employee creates project", employee, ActionCreateProject, nil, false},
		{"scrum master updates project", scrumMaster, ActionUpdateProject, nil, true},
		{"employee updates project", employee, ActionUpdateProject, nil, false},
		{"scrum master creates task", scrumMaster, ActionCreateTask, nil, true},
		{"employee creates task", employee, ActionCreateTask, nil, false},
		{"scrum master assigns task", scrumMaster, ActionAssignTask, nil, true},
		{"employee assigns task", employee, ActionAssignTask, nil, false},
		{"scrum master unassigns task", scrumMaster, ActionUnassignTask, nil, true},
		{"employee unassigns task", employee, ActionUnassignTask, nil, false},
		{"scrum master changes priority", scrumMaster, ActionChangePriority, nil, true},
		{"employee changes priority", employee, ActionChangePriority, nil, false},
		{"scrum master adds member", scrumMaster, ActionAddMember, nil, true},
		{"employee adds member", employee, ActionAddMember, nil, false},
		{"scrum master removes member", scrumMaster, ActionRemoveMember, nil, true},
		{"employee removes member", employee, ActionRemoveMember, nil, false},

		{"employee moves own task", employee, ActionChangeTaskStatus, assignedToEmployee, true},
		{"employee moves someone else's task", employee, ActionChangeTaskStatus, assignedToOther, false},
		{"employee moves unassigned task", employee, ActionChangeTaskStatus, unassigned, false},
		{"employee moves nil task", employee, ActionChangeTaskStatus, nil, false},
		{"scrum master moves any task", scrumMaster, ActionChangeTaskStatus, assignedToEmployee, true},
		{"employee updates own task", employee, ActionUpdateTask, assignedToEmployee, true},
		{"employee updates someone else's task", employee, ActionUpdateTask, assignedToOther, false},

		{"superuser creates project", superuser, ActionCreateProject, nil, true},
		{"superuser moves any task", superuser, ActionChangeTaskStatus, unassigned, true},

		{"unknown action", scrumMaster, Action(0), nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.actor, tc.action, tc.task); got != tc.allowed {
				t.Errorf("Can() = %v; want %v", got, tc.allowed)
			}
		})
	}
}

func TestEmployeeUpdatableFields(t *testing.T) {
	if !EmployeeUpdatableFields["status"] {
		t.Error("status must be employee-updatable")
	}
	for _, field := range []string{"title", "priority", "assignee_id", "due_date"} {
		if EmployeeUpdatableFields[field] {
			t.Errorf("%s must not be employee-updatable", field)
		}
	}
}

// Package policy provides the authorization decisions gating every mutating
// workflow operation.
package policy

import (
	"taskflow/app/database"
)

// Action represents a policy decision for an actor's operation.
type Action int

const (
	// ActionCreateProject allows creating projects.
	ActionCreateProject Action = iota + 1
	// ActionUpdateProject allows editing project attributes.
	ActionUpdateProject
	// ActionCreateTask allows creating tasks in a project.
	ActionCreateTask
	// ActionAssignTask allows assigning and reassigning tasks.
	ActionAssignTask
	// ActionUnassignTask allows clearing a task's assignee.
	ActionUnassignTask
	// ActionChangeTaskStatus allows moving a task between board states.
	ActionChangeTaskStatus
	// ActionChangePriority allows changing a task's priority.
	ActionChangePriority
	// ActionUpdateTask allows general task field edits.
	ActionUpdateTask
	// ActionAddMember allows adding project members.
	ActionAddMember
	// ActionRemoveMember allows removing project members.
	ActionRemoveMember
)

// Can reports whether the actor may perform the action. The task target is
// consulted only for task-scoped actions and may be nil otherwise.
//
// Superusers may do anything. Scrum masters may do anything below superuser.
// Employees may only change status on tasks assigned to them; general task
// edits by employees are restricted to the status field via
// EmployeeUpdatableFields.
func Can(actor *database.User, action Action, task *database.Task) bool {
	if actor.IsSuperuser {
		return true
	}

	switch action {
	case ActionCreateProject, ActionUpdateProject, ActionCreateTask,
		ActionAssignTask, ActionUnassignTask, ActionChangePriority,
		ActionAddMember, ActionRemoveMember:
		return actor.IsScrumMaster()

	case ActionChangeTaskStatus, ActionUpdateTask:
		if actor.IsScrumMaster() {
			return true
		}
		return task != nil && task.AssigneeID != nil && *task.AssigneeID == actor.ID
	}

	return false
}

// EmployeeUpdatableFields is the whitelist of task fields an employee may
// mutate on their own assigned tasks.
var EmployeeUpdatableFields = map[string]bool{
	"status": true,
}

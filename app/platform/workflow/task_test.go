package workflow

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskflow/app/database"
	"taskflow/app/platform/analytics"
)

func TestCreateTask(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	employee := seedUser(t, db, "emp", database.RoleEmployee)
	project := seedProject(t, s, sm)

	if _, err := s.CreateTask(employee, project.ID, TaskInput{Title: "Nope"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("employee create: got %v; want ErrForbidden", err)
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "  Fix login page  "})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Title != "Fix login page" {
		t.Errorf("title = %q; want trimmed", task.Title)
	}
	if task.Status != database.TaskStatusTodo || task.Priority != database.PriorityMedium {
		t.Errorf("defaults = %s/%s; want todo/medium", task.Status, task.Priority)
	}
	if task.CompletedAt != nil {
		t.Error("new todo task must not have completed_at")
	}

	if got := countEvents(t, db, sm.ID, database.EventTaskCreated); got != 1 {
		t.Errorf("task_created events = %d; want 1", got)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	project := seedProject(t, s, sm)

	if _, err := s.CreateTask(sm, project.ID, TaskInput{Title: "ab"}); !errors.Is(err, ErrValidation) {
		t.Errorf("short title: got %v; want ErrValidation", err)
	}
	if _, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Task", Status: "archived"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad status: got %v; want ErrValidation", err)
	}
	if _, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Task", Priority: "extreme"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad priority: got %v; want ErrValidation", err)
	}
	if _, err := s.CreateTask(sm, uuid.New(), TaskInput{Title: "Task"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown project: got %v; want ErrNotFound", err)
	}
}

func TestCreateTaskAssigneeMustBeMember(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	outsider := seedUser(t, db, "outsider", database.RoleEmployee)
	project := seedProject(t, s, sm)

	_, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Task", AssigneeID: &outsider.ID})
	if !errors.Is(err, ErrAssigneeNotMember) {
		t.Fatalf("non-member assignee: got %v; want ErrAssigneeNotMember", err)
	}

	if _, err := s.AddMember(sm, project.ID, outsider.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}
	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Task", AssigneeID: &outsider.ID})
	if err != nil {
		t.Fatalf("create with member assignee: %v", err)
	}
	if task.AssigneeID == nil || *task.AssigneeID != outsider.ID {
		t.Error("assignee not set")
	}

	// Assignment notifies the assignee.
	var notifications int64
	db.Model(&database.Notification{}).Where("user_id = ?", outsider.ID).Count(&notifications)
	if notifications != 1 {
		t.Errorf("assignee notifications = %d; want 1", notifications)
	}
}

func TestTaskVisibility(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	member := seedUser(t, db, "member", database.RoleEmployee)
	outsider := seedUser(t, db, "outsider", database.RoleEmployee)
	project := seedProject(t, s, sm)
	if _, err := s.AddMember(sm, project.ID, member.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.GetTask(sm, task.ID); err != nil {
		t.Errorf("creator visibility: %v", err)
	}
	if _, err := s.GetTask(member, task.ID); err != nil {
		t.Errorf("project member visibility: %v", err)
	}
	if _, err := s.GetTask(outsider, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("outsider get: got %v; want ErrNotFound", err)
	}

	tasks, err := s.ListTasks(outsider, TaskFilters{})
	if err != nil {
		t.Fatalf("list as outsider: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("outsider sees %d tasks; want 0", len(tasks))
	}

	tasks, err = s.ListTasks(member, TaskFilters{})
	if err != nil {
		t.Fatalf("list as member: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("member sees %d tasks; want 1", len(tasks))
	}
}

func TestListTasksFilters(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	project := seedProject(t, s, sm)

	seed := []TaskInput{
		{Title: "Fix login page", Status: database.TaskStatusTodo, Priority: database.PriorityHigh},
		{Title: "Write docs", Status: database.TaskStatusInProgress, Priority: database.PriorityLow},
		{Title: "Ship release", Status: database.TaskStatusDone, Priority: database.PriorityHigh},
	}
	for _, input := range seed {
		if _, err := s.CreateTask(sm, project.ID, input); err != nil {
			t.Fatalf("create %q: %v", input.Title, err)
		}
	}

	tasks, err := s.ListTasks(sm, TaskFilters{Status: database.TaskStatusTodo})
	if err != nil {
		t.Fatalf("filter by status: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Fix login page" {
		t.Errorf("status filter returned %+v", tasks)
	}

	tasks, err = s.ListTasks(sm, TaskFilters{Priority: database.PriorityHigh})
	if err != nil {
		t.Fatalf("filter by priority: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("priority filter returned %d tasks; want 2", len(tasks))
	}

	tasks, err = s.ListTasks(sm, TaskFilters{Search: "LOGIN"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Fix login page" {
		t.Errorf("search returned %+v", tasks)
	}

	// Unknown orderings fall back to newest-first instead of erroring.
	if _, err := s.ListTasks(sm, TaskFilters{Ordering: "id; DROP TABLE tasks"}); err != nil {
		t.Errorf("unknown ordering: %v", err)
	}
}

func TestChangeStatusSideEffects(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	project := seedProject(t, s, sm)

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	task, err = s.ChangeStatus(sm, task.ID, database.TaskStatusDone)
	if err != nil {
		t.Fatalf("move to done: %v", err)
	}
	if task.CompletedAt == nil {
		t.Fatal("entering done must stamp completed_at")
	}
	if got := countEvents(t, db, sm.ID, database.EventTaskCompleted); got != 1 {
		t.Errorf("task_completed events = %d; want 1", got)
	}

	task, err = s.ChangeStatus(sm, task.ID, database.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("move out of done: %v", err)
	}
	if task.CompletedAt != nil {
		t.Error("leaving done must clear completed_at")
	}
	if got := countEvents(t, db, sm.ID, database.EventTaskMoved); got != 1 {
		t.Errorf("task_moved events = %d; want 1", got)
	}

	if _, err := s.ChangeStatus(sm, task.ID, "archived"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad status: got %v; want ErrValidation", err)
	}
}

func TestChangeStatusAuthorization(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	assignee := seedUser(t, db, "assignee", database.RoleEmployee)
	bystander := seedUser(t, db, "bystander", database.RoleEmployee)
	project := seedProject(t, s, sm)
	for _, u := range []*database.User{assignee, bystander} {
		if _, err := s.AddMember(sm, project.ID, u.ID, ""); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page", AssigneeID: &assignee.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.ChangeStatus(assignee, task.ID, database.TaskStatusInProgress); err != nil {
		t.Errorf("assignee moves own task: %v", err)
	}
	if _, err := s.ChangeStatus(bystander, task.ID, database.TaskStatusDone); !errors.Is(err, ErrForbidden) {
		t.Errorf("bystander moves task: got %v; want ErrForbidden", err)
	}
}

func TestUpdateTaskEmployeeFieldRestrictions(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	assignee := seedUser(t, db, "assignee", database.RoleEmployee)
	project := seedProject(t, s, sm)
	if _, err := s.AddMember(sm, project.ID, assignee.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page", AssigneeID: &assignee.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	status := database.TaskStatusInProgress
	if _, err := s.UpdateTask(assignee, task.ID, TaskUpdateInput{Status: &status}); err != nil {
		t.Errorf("assignee updates status: %v", err)
	}

	title := "Hijacked title"
	if _, err := s.UpdateTask(assignee, task.ID, TaskUpdateInput{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignee updates title: got %v; want ErrForbidden", err)
	}
	priority := database.PriorityUrgent
	if _, err := s.UpdateTask(assignee, task.ID, TaskUpdateInput{Priority: &priority}); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignee updates priority: got %v; want ErrForbidden", err)
	}

	// The scrum master may touch everything.
	updated, err := s.UpdateTask(sm, task.ID, TaskUpdateInput{Title: &title, Priority: &priority})
	if err != nil {
		t.Fatalf("scrum master update: %v", err)
	}
	if updated.Title != title || updated.Priority != priority {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestAssignTask(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	member := seedUser(t, db, "member", database.RoleEmployee)
	outsider := seedUser(t, db, "outsider", database.RoleEmployee)
	project := seedProject(t, s, sm)
	if _, err := s.AddMember(sm, project.ID, member.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page", AssigneeID: &member.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.AssignTask(member, task.ID, member.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("employee assigns: got %v; want ErrForbidden", err)
	}

	// A failed reassignment to a non-member keeps the prior assignee.
	if _, err := s.AssignTask(sm, task.ID, outsider.ID); !errors.Is(err, ErrAssigneeNotMember) {
		t.Errorf("non-member assignment: got %v; want ErrAssigneeNotMember", err)
	}
	reloaded, err := s.GetTask(sm, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.AssigneeID == nil || *reloaded.AssigneeID != member.ID {
		t.Error("prior assignee must survive a rejected reassignment")
	}

	if _, err := s.AssignTask(sm, task.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v; want ErrNotFound", err)
	}

	unassigned, err := s.UnassignTask(sm, task.ID)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if unassigned.AssigneeID != nil {
		t.Error("assignee should be cleared")
	}
}

func TestChangePriority(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	assignee := seedUser(t, db, "assignee", database.RoleEmployee)
	project := seedProject(t, s, sm)
	if _, err := s.AddMember(sm, project.ID, assignee.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page", AssigneeID: &assignee.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Priority stays scrum-master-only even on the assignee's own task.
	if _, err := s.ChangePriority(assignee, task.ID, database.PriorityUrgent); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignee changes priority: got %v; want ErrForbidden", err)
	}

	updated, err := s.ChangePriority(sm, task.ID, database.PriorityUrgent)
	if err != nil {
		t.Fatalf("change priority: %v", err)
	}
	if updated.Priority != database.PriorityUrgent {
		t.Errorf("priority = %q; want urgent", updated.Priority)
	}
	if _, err := s.ChangePriority(sm, task.ID, "extreme"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad priority: got %v; want ErrValidation", err)
	}
}

func TestComments(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	outsider := seedUser(t, db, "outsider", database.RoleEmployee)
	project := seedProject(t, s, sm)

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.AddComment(sm, task.ID, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank comment: got %v; want ErrValidation", err)
	}
	if _, err := s.AddComment(outsider, task.ID, "Sneaky"); !errors.Is(err, ErrNotFound) {
		t.Errorf("outsider comments: got %v; want ErrNotFound", err)
	}

	if _, err := s.AddComment(sm, task.ID, "Looks good"); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	comments, err := s.Comments(sm, task.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Content != "Looks good" {
		t.Errorf("comments = %+v", comments)
	}
	if got := countEvents(t, db, sm.ID, database.EventCommentAdded); got != 1 {
		t.Errorf("comment_added events = %d; want 1", got)
	}
}

func TestAttachments(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	project := seedProject(t, s, sm)

	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.AddAttachment(sm, task.ID, "design.pdf", "abcd1234", 2048); err != nil {
		t.Fatalf("add attachment: %v", err)
	}

	attachments, err := s.Attachments(sm, task.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(attachments) != 1 || attachments[0].Filename != "design.pdf" || attachments[0].SizeBytes != 2048 {
		t.Errorf("attachments = %+v", attachments)
	}
	if got := countEvents(t, db, sm.ID, database.EventFileUploaded); got != 1 {
		t.Errorf("file_uploaded events = %d; want 1", got)
	}
}

// Events land in the ledger under the acting user, so two people working the
// same project get distinct dashboards: the scrum master who set it up sees
// the project creation, the employee who finished the task sees the
// completion, and neither sees the other's activity.
func TestCompletionAttributedToActingEmployee(t *testing.T) {
	s, db := newTestEngine(t)
	sm := seedUser(t, db, "sm", database.RoleScrumMaster)
	employee := seedUser(t, db, "emp", database.RoleEmployee)

	project, err := s.CreateProject(sm, ProjectInput{Name: "Website relaunch"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := s.AddMember(sm, project.ID, employee.ID, ""); err != nil {
		t.Fatalf("add member: %v", err)
	}
	task, err := s.CreateTask(sm, project.ID, TaskInput{Title: "Fix login page", AssigneeID: &employee.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := s.ChangeStatus(employee, task.ID, database.TaskStatusDone); err != nil {
		t.Fatalf("employee completes task: %v", err)
	}

	if got := countEvents(t, db, employee.ID, database.EventTaskCompleted); got != 1 {
		t.Errorf("task_completed under employee = %d; want 1", got)
	}
	if got := countEvents(t, db, sm.ID, database.EventTaskCompleted); got != 0 {
		t.Errorf("task_completed under scrum master = %d; want 0", got)
	}

	reports := analytics.NewService(db, zerolog.Nop())

	smDashboard, err := reports.Dashboard(sm.ID, 0)
	if err != nil {
		t.Fatalf("scrum master dashboard: %v", err)
	}
	if smDashboard.ProjectCreated != 1 || smDashboard.TaskCompleted != 0 {
		t.Errorf("scrum master dashboard = project_created %d, task_completed %d; want 1, 0",
			smDashboard.ProjectCreated, smDashboard.TaskCompleted)
	}

	empDashboard, err := reports.Dashboard(employee.ID, 0)
	if err != nil {
		t.Fatalf("employee dashboard: %v", err)
	}
	if empDashboard.TaskCompleted != 1 || empDashboard.ProjectCreated != 0 {
		t.Errorf("employee dashboard = task_completed %d, project_created %d; want 1, 0",
			empDashboard.TaskCompleted, empDashboard.ProjectCreated)
	}
}

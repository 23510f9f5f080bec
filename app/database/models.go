package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Global user roles.
const (
	RoleScrumMaster = "scrum_master"
	RoleEmployee    = "employee"
)

// Project lifecycle statuses.
const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in-progress"
	ProjectStatusReview     = "review"
	ProjectStatusCompleted  = "completed"
	ProjectStatusOnHold     = "on-hold"
	ProjectStatusCancelled  = "cancelled"
)

// Project member roles.
const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
	MemberRoleViewer = "viewer"
)

// Task board statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Analytics event types.
const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskMoved      = "task_moved"
	EventTaskCompleted  = "task_completed"
	EventTaskAssigned   = "task_assigned"
	EventProjectCreated = "project_created"
	EventProjectUpdated = "project_updated"
	EventCommentAdded   = "comment_added"
	EventFileUploaded   = "file_uploaded"
	EventUserLogin      = "user_login"
)

// Notification types.
const (
	NotificationTaskAssigned = "task_assigned"
	NotificationTaskUpdated  = "task_updated"
)

func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusReview,
		ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

func IsValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

func IsValidPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func IsValidMemberRole(s string) bool {
	switch s {
	case MemberRoleAdmin, MemberRoleMember, MemberRoleViewer:
		return true
	}
	return false
}

func IsValidEventType(s string) bool {
	switch s {
	case EventTaskCreated, EventTaskUpdated, EventTaskMoved, EventTaskCompleted,
		EventTaskAssigned, EventProjectCreated, EventProjectUpdated,
		EventCommentAdded, EventFileUploaded, EventUserLogin:
		return true
	}
	return false
}

// User represents a user account in the system. Security counters and the
// reset token columns are mutated only by the user platform service.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role" gorm:"default:'employee'"`

	Bio                     string     `json:"bio"`
	JobTitle                string     `json:"job_title"`
	Department              string     `json:"department"`
	Phone                   string     `json:"phone"`
	ThemePreference         string     `json:"theme_preference" gorm:"default:'light'"`
	NotificationPreferences JSONObject `json:"notification_preferences" gorm:"type:jsonb"`

	FailedLoginAttempts  int        `json:"-" gorm:"default:0"`
	AccountLocked        bool       `json:"-" gorm:"default:false"`
	LockedUntil          *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-" gorm:"uniqueIndex"`
	PasswordResetExpires *time.Time `json:"-"`
	LastPasswordChange   time.Time  `json:"-" gorm:"autoCreateTime"`

	IsActive      bool      `json:"is_active" gorm:"default:true"`
	IsSuperuser   bool      `json:"-" gorm:"default:false"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	LastLogin     time.Time `json:"-" gorm:"autoCreateTime"`
	LastActive    time.Time `json:"last_active" gorm:"autoCreateTime"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsScrumMaster reports whether the user holds the scrum_master role.
func (u *User) IsScrumMaster() bool {
	return u.Role == RoleScrumMaster
}

// IsAccountLocked reports whether the account is currently locked. A lockout
// with a window ends when the window elapses; an administrative lock without
// a window holds until explicitly cleared.
func (u *User) IsAccountLocked() bool {
	if u.LockedUntil != nil {
		return time.Now().Before(*u.LockedUntil)
	}
	return u.AccountLocked
}

type Project struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status" gorm:"default:'planning'"`
	CreatedByID uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedBy   *User     `json:"-" gorm:"foreignKey:CreatedByID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []ProjectMember `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Tasks   []Task          `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectMember is the membership edge between a user and a project.
// Exactly one row may exist per (user, project) pair.
type ProjectMember struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_member"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_member"`
	Role      string    `json:"role" gorm:"default:'member'"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Status      string     `json:"status" gorm:"default:'todo'"`
	Priority    string     `json:"priority" gorm:"default:'medium'"`
	DueDate     time.Time  `json:"due_date"`
	ProjectID   uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	AssigneeID  *uuid.UUID `json:"assignee_id" gorm:"type:uuid;index"`
	CreatedByID uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Assignee *User `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TaskComment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TaskID    uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type TaskAttachment struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TaskID       uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	UploadedByID uuid.UUID `json:"uploaded_by" gorm:"type:uuid;not null"`
	Filename     string    `json:"filename" gorm:"not null"`
	Key          string    `json:"key" gorm:"uniqueIndex;not null"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (a *TaskAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// AnalyticsEvent is an append-only ledger row. Rows are never updated or
// deleted; queries order by timestamp descending.
type AnalyticsEvent struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_event_user_type"`
	EventType  string     `json:"event_type" gorm:"index:idx_event_user_type"`
	EntityType string     `json:"entity_type" gorm:"index:idx_event_entity"`
	EntityID   uuid.UUID  `json:"entity_id" gorm:"type:uuid;index:idx_event_entity"`
	Metadata   JSONObject `json:"metadata" gorm:"type:jsonb"`
	Timestamp  time.Time  `json:"timestamp" gorm:"index"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
}

func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// Package analytics owns the append-only event ledger and its read-time
// aggregations. Writes are fire-and-forget telemetry: a ledger failure is
// logged and never surfaces to the operation that triggered it.
package analytics

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskflow/app/database"
)

const defaultWindowDays = 30

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// Entry describes a single ledger append.
type Entry struct {
	UserID     uuid.UUID
	EventType  string
	EntityType string
	EntityID   uuid.UUID
	Metadata   database.JSONObject
	IPAddress  string
	UserAgent  string
}

// Record appends an event to the ledger. Failures are swallowed and logged;
// analytics must never block or roll back the operation that emitted them.
func (s *Service) Record(e Entry) {
	metadata := e.Metadata
	if metadata == nil {
		metadata = database.JSONObject{}
	}

	event := database.AnalyticsEvent{
		UserID:     e.UserID,
		EventType:  e.EventType,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Metadata:   metadata,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}

	if err := s.db.Create(&event).Error; err != nil {
		s.log.Warn().Err(err).
			Str("event_type", e.EventType).
			Str("entity_type", e.EntityType).
			Msg("failed to record analytics event")
	}
}

// Filters narrows a ledger query. Zero values mean no filter; WindowDays
// defaults to 30.
type Filters struct {
	EventType  string
	EntityType string
	WindowDays int
}

// Query returns the user's own events within the window, newest first.
// The ledger is always scoped to the querying identity.
func (s *Service) Query(userID uuid.UUID, f Filters) ([]database.AnalyticsEvent, error) {
	q := s.db.Where("user_id = ? AND timestamp >= ?", userID, windowStart(f.WindowDays))

	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}

	var events []database.AnalyticsEvent
	err := q.Order("timestamp DESC").Find(&events).Error
	return events, err
}

type DayActivity struct {
	Date          string `json:"date"`
	Events        int    `json:"events"`
	TaskCreated   int    `json:"task_created"`
	TaskCompleted int    `json:"task_completed"`
}

type ProjectActivity struct {
	EntityID    uuid.UUID `json:"entity_id"`
	Count       int       `json:"count"`
	ProjectName string    `json:"project_name"`
}

type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

type DashboardSummary struct {
	TaskCreated        int               `json:"task_created"`
	TaskCompleted      int               `json:"task_completed"`
	TaskMoved          int               `json:"task_moved"`
	ProjectCreated     int               `json:"project_created"`
	TotalEvents        int               `json:"total_events"`
	ActivityOverTime   []DayActivity     `json:"activity_over_time"`
	EventDistribution  []EventTypeCount  `json:"event_distribution"`
	MostActiveProjects []ProjectActivity `json:"most_active_projects"`
}

// Dashboard computes the per-user dashboard over the window: event counts,
// a fixed 7-day daily histogram (UTC calendar days, regardless of the window
// size), the event-type distribution, and the five most active projects with
// a best-effort name lookup.
func (s *Service) Dashboard(userID uuid.UUID, windowDays int) (*DashboardSummary, error) {
	events, err := s.Query(userID, Filters{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}

	summary := DashboardSummary{TotalEvents: len(events)}

	for _, e := range events {
		switch {
		case e.EntityType == "task" && e.EventType == database.EventTaskCreated:
			summary.TaskCreated++
		case e.EntityType == "task" && e.EventType == database.EventTaskCompleted:
			summary.TaskCompleted++
		case e.EntityType == "task" && e.EventType == database.EventTaskMoved:
			summary.TaskMoved++
		case e.EntityType == "project" && e.EventType == database.EventProjectCreated:
			summary.ProjectCreated++
		}
	}

	summary.ActivityOverTime = dailyActivity(events)
	summary.EventDistribution = eventDistribution(events)

	projectCounts := map[uuid.UUID]int{}
	for _, e := range events {
		if e.EntityType == "project" {
			projectCounts[e.EntityID]++
		}
	}
	summary.MostActiveProjects = s.topProjects(projectCounts, 5)

	return &summary, nil
}

// dailyActivity buckets events into the last 7 UTC calendar days, today first.
func dailyActivity(events []database.AnalyticsEvent) []DayActivity {
	activity := make([]DayActivity, 0, 7)
	now := time.Now().UTC()

	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.AddDate(0, 0, 1)

		bucket := DayActivity{Date: dayStart.Format("2006-01-02")}
		for _, e := range events {
			ts := e.Timestamp.UTC()
			if ts.Before(dayStart) || !ts.Before(dayEnd) {
				continue
			}
			bucket.Events++
			switch e.EventType {
			case database.EventTaskCreated:
				bucket.TaskCreated++
			case database.EventTaskCompleted:
				bucket.TaskCompleted++
			}
		}
		activity = append(activity, bucket)
	}

	return activity
}

func eventDistribution(events []database.AnalyticsEvent) []EventTypeCount {
	counts := map[string]int{}
	for _, e := range events {
		counts[e.EventType]++
	}

	distribution := make([]EventTypeCount, 0, len(counts))
	for eventType, count := range counts {
		distribution = append(distribution, EventTypeCount{EventType: eventType, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].EventType < distribution[j].EventType
	})

	return distribution
}

// topProjects resolves the most active project ids to names. A project that
// no longer resolves gets a placeholder label, never an error.
func (s *Service) topProjects(counts map[uuid.UUID]int, limit int) []ProjectActivity {
	ranked := make([]ProjectActivity, 0, len(counts))
	for id, count := range counts {
		ranked = append(ranked, ProjectActivity{EntityID: id, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].EntityID.String() < ranked[j].EntityID.String()
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		var project database.Project
		if err := s.db.First(&project, "id = ?", ranked[i].EntityID).Error; err != nil {
			ranked[i].ProjectName = "Unknown Project"
			continue
		}
		ranked[i].ProjectName = project.Name
	}

	return ranked
}

type StatusChangeCount struct {
	Metadata database.JSONObject `json:"metadata"`
	Count    int                 `json:"count"`
}

type TaskAnalytics struct {
	StatusChanges        []StatusChangeCount `json:"status_changes"`
	CompletionByPriority map[string]int      `json:"completion_by_priority"`
	AvgCompletionTime    int                 `json:"avg_completion_time"`
	TotalTasksCreated    int                 `json:"total_tasks_created"`
	TotalTasksCompleted  int                 `json:"total_tasks_completed"`
}

// Tasks computes task-scoped analytics over the window. Status changes are
// grouped by the full metadata payload, so transitions with differing
// incidental metadata land in separate buckets. AvgCompletionTime is the
// completed-event count, not a duration: a real latency metric needs a
// correlation id linking created and completed events, which the event
// schema does not carry.
func (s *Service) Tasks(userID uuid.UUID, windowDays int) (*TaskAnalytics, error) {
	events, err := s.Query(userID, Filters{EntityType: "task", WindowDays: windowDays})
	if err != nil {
		return nil, err
	}

	result := TaskAnalytics{CompletionByPriority: map[string]int{}}

	statusGroups := map[string]*StatusChangeCount{}
	var statusKeys []string

	for _, e := range events {
		switch e.EventType {
		case database.EventTaskMoved:
			key := metadataKey(e.Metadata)
			group, ok := statusGroups[key]
			if !ok {
				group = &StatusChangeCount{Metadata: e.Metadata}
				statusGroups[key] = group
				statusKeys = append(statusKeys, key)
			}
			group.Count++
		case database.EventTaskCompleted:
			priority, ok := e.Metadata["priority"].(string)
			if !ok || priority == "" {
				priority = "unknown"
			}
			result.CompletionByPriority[priority]++
			result.TotalTasksCompleted++
		case database.EventTaskCreated:
			result.TotalTasksCreated++
		}
	}

	sort.Strings(statusKeys)
	for _, key := range statusKeys {
		result.StatusChanges = append(result.StatusChanges, *statusGroups[key])
	}

	result.AvgCompletionTime = result.TotalTasksCompleted

	return &result, nil
}

// metadataKey serializes a payload into a stable grouping key.
func metadataKey(metadata database.JSONObject) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}

func windowStart(days int) time.Time {
	if days <= 0 {
		days = defaultWindowDays
	}
	return time.Now().AddDate(0, 0, -days)
}

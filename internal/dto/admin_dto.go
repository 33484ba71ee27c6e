package dto

import (
	"time"

	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// DashboardResponse is the teacher dashboard.
type DashboardResponse struct {
	TeacherID   uint                     `json:"teacherId"`
	Summary     grading.DashboardSummary `json:"summary"`
	GeneratedAt time.Time                `json:"generatedAt"`
	CacheHit    bool                     `json:"cacheHit"`
}

// ClassDetailResponse is a class with its lessons.
type ClassDetailResponse struct {
	Class   models.Class    `json:"class"`
	Lessons []models.Lesson `json:"lessons"`
}

// StudentProgress is one row of the class roster.
type StudentProgress struct {
	Student            models.Student `json:"student"`
	CompletedExercises int            `json:"completedExercises"`
	TotalExercises     int            `json:"totalExercises"`
	ProgressError      bool           `json:"progressError,omitempty"`
}

// ClassStudentsResponse lists a class roster with coding progress.
type ClassStudentsResponse struct {
	ClassID        uint              `json:"classId"`
	TotalExercises int               `json:"totalExercises"`
	Students       []StudentProgress `json:"students"`
}

// LessonCreateRequest creates a lesson inside a class.
type LessonCreateRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Label string `json:"label" validate:"omitempty,max=100"`
}

// TestCaseRequest is a test case written by a teacher. Test cases are hidden
// unless stated otherwise.
type TestCaseRequest struct {
	InputData      string `json:"inputData" validate:"max=65536"`
	ExpectedOutput string `json:"expectedOutput" validate:"required,max=65536"`
	IsHidden       *bool  `json:"isHidden"`
}

// Hidden resolves the hidden flag default.
func (r TestCaseRequest) Hidden() bool {
	if r.IsHidden == nil {
		return true
	}
	return *r.IsHidden
}

// ExerciseRequest creates or replaces an exercise.
type ExerciseRequest struct {
	Title         string            `json:"title" validate:"required,min=1,max=200"`
	Description   string            `json:"description" validate:"required,max=20000"`
	ExampleInput  string            `json:"exampleInput" validate:"max=4096"`
	ExampleOutput string            `json:"exampleOutput" validate:"max=4096"`
	InitialCode   string            `json:"initialCode" validate:"max=65536"`
	TestCases     []TestCaseRequest `json:"testCases" validate:"required,min=1,max=100,dive"`
}

// ExerciseAdminView is an exercise as shown to teachers, hidden test cases included.
type ExerciseAdminView struct {
	Exercise        models.Exercise `json:"exercise"`
	SubmissionCount *int            `json:"submissionCount,omitempty"`
}

// ScoreUpdateRequest overrides a submission score.
type ScoreUpdateRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0,lte=100"`
}

// SubmissionListResponse lists an exercise's submissions.
type SubmissionListResponse struct {
	ExerciseID  uint                `json:"exerciseId"`
	Submissions []models.Submission `json:"submissions"`
	Latest      map[uint]uint       `json:"latestByStudent"`
}

// SubmissionDetailResponse is a submission with its decoded test-case results.
type SubmissionDetailResponse struct {
	Submission models.Submission        `json:"submission"`
	Outcome    models.SubmissionStatus  `json:"outcome"`
	TestCases  []models.TestCaseOutcome `json:"testCases"`
	Passed     int                      `json:"passed"`
	Total      int                      `json:"total"`
}

// ContentUploadRequest carries the form fields of a lesson content upload.
type ContentUploadRequest struct {
	Title       string `form:"title" validate:"required,min=1,max=200"`
	ContentType string `form:"contentType" validate:"omitempty,oneof=PDF Video"`
	Category    string `form:"category" validate:"required,oneof='Hoạt động trước khi lên lớp' 'Hoạt động trên lớp' 'Hoạt động sau khi lên lớp'"`
}

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page          int
	PageSize      int
	ActorID       uint
	ActorRole     string
	Action        string
	EntityType    string
	EntityID      uint
	CorrelationID string
	Since         *time.Time
	Until         *time.Time
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actorId"`
	ActorRole     string                 `json:"actorRole"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entityType"`
	EntityID      *uint                  `json:"entityId"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	return ActivityResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		CorrelationID: entry.CorrelationID,
		Metadata:      metadata,
		CreatedAt:     entry.CreatedAt,
	}
}

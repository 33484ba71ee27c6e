package models

import (
	"encoding/json"
	"strings"
)

// Raw status markers used by the learning backend.
const (
	SubmissionMarkerAccepted      = "Accepted"
	SubmissionMarkerFailed        = "Failed"
	SubmissionMarkerPending       = "Pending"
	SubmissionMarkerPendingLegacy = "Đang kiểm tra"
)

// SubmissionStatus is the portal's view of a backend submission status.
type SubmissionStatus string

// Normalised submission statuses.
const (
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionFailed   SubmissionStatus = "failed"
)

// ParseSubmissionStatus maps a backend status string onto a SubmissionStatus.
// Unknown values are treated as failures.
func ParseSubmissionStatus(raw string) SubmissionStatus {
	value := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(value, SubmissionMarkerAccepted):
		return SubmissionAccepted
	case strings.EqualFold(value, SubmissionMarkerPending), strings.EqualFold(value, SubmissionMarkerPendingLegacy):
		return SubmissionPending
	default:
		return SubmissionFailed
	}
}

// Submission is a persisted attempt recorded by the backend.
type Submission struct {
	ID              uint      `json:"submissionID"`
	StudentID       uint      `json:"studentID"`
	ExerciseID      uint      `json:"exerciseID"`
	Code            string    `json:"code"`
	Language        string    `json:"programmingLanguage"`
	SubmittedAt     Timestamp `json:"submittedAt"`
	Status          string    `json:"status"`
	Score           *float64  `json:"score"`
	Result          string    `json:"result"`
	ExecutionTime   float64   `json:"executionTime"`
	MemoryUsage     float64   `json:"memoryUsage"`
	TestCasesPassed int       `json:"testCasesPassed"`
	TotalTestCases  int       `json:"totalTestCases"`
}

// Outcome returns the normalised status of the submission.
func (s Submission) Outcome() SubmissionStatus {
	return ParseSubmissionStatus(s.Status)
}

// TestCaseOutcome is one entry of a submission's serialized result.
type TestCaseOutcome struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Output   string `json:"output"`
	Status   string `json:"status"`
}

// Passed reports whether the outcome was marked as a pass.
func (o TestCaseOutcome) Passed() bool {
	return strings.Contains(o.Status, "Pass")
}

// Outcomes decodes the serialized test-case results. Unreadable results yield an empty list.
func (s Submission) Outcomes() []TestCaseOutcome {
	if strings.TrimSpace(s.Result) == "" {
		return []TestCaseOutcome{}
	}
	var outcomes []TestCaseOutcome
	if err := json.Unmarshal([]byte(s.Result), &outcomes); err != nil || outcomes == nil {
		return []TestCaseOutcome{}
	}
	return outcomes
}

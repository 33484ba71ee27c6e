package grading

import (
	"time"

	"github.com/noah-isme/codelab-portal/internal/models"
)

// ExerciseState is the display state of an exercise for one student.
type ExerciseState string

// Exercise display states.
const (
	StatusNotAttempted ExerciseState = "not_attempted"
	StatusInProgress   ExerciseState = "in_progress"
	StatusCompleted    ExerciseState = "completed"
	StatusFailed       ExerciseState = "failed"
)

// DerivedExerciseStatus is computed from submission history and never stored.
type DerivedExerciseStatus struct {
	State        ExerciseState `json:"state"`
	Score        *float64      `json:"score,omitempty"`
	SubmissionID *uint         `json:"submissionId,omitempty"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
}

// LatestSubmission returns the most recent submission for exerciseID. Equal
// timestamps are resolved by the higher submission id.
func LatestSubmission(exerciseID uint, submissions []models.Submission) (models.Submission, bool) {
	var (
		latest models.Submission
		found  bool
	)
	for _, submission := range submissions {
		if submission.ExerciseID != exerciseID {
			continue
		}
		if !found || newer(submission, latest) {
			latest = submission
			found = true
		}
	}
	return latest, found
}

// DeriveStatus computes the display status of an exercise from the latest
// matching submission.
func DeriveStatus(exerciseID uint, submissions []models.Submission) DerivedExerciseStatus {
	latest, ok := LatestSubmission(exerciseID, submissions)
	if !ok {
		return DerivedExerciseStatus{State: StatusNotAttempted}
	}

	id := latest.ID
	submittedAt := latest.SubmittedAt.Time
	status := DerivedExerciseStatus{SubmissionID: &id, SubmittedAt: &submittedAt}

	switch latest.Outcome() {
	case models.SubmissionAccepted:
		status.State = StatusCompleted
		status.Score = copyScore(latest.Score)
	case models.SubmissionPending:
		status.State = StatusInProgress
	default:
		status.State = StatusFailed
		status.Score = copyScore(latest.Score)
	}
	return status
}

func newer(a, b models.Submission) bool {
	if a.SubmittedAt.Equal(b.SubmittedAt.Time) {
		return a.ID > b.ID
	}
	return a.SubmittedAt.After(b.SubmittedAt.Time)
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	value := *score
	return &value
}

package grading

import "github.com/noah-isme/codelab-portal/internal/models"

// ExerciseProgress is one exercise row of a student's class progress.
type ExerciseProgress struct {
	ExerciseID  uint                  `json:"exerciseId"`
	Title       string                `json:"title"`
	LessonID    uint                  `json:"lessonId"`
	LessonTitle string                `json:"lessonTitle,omitempty"`
	Attempts    int                   `json:"attempts"`
	Status      DerivedExerciseStatus `json:"status"`
}

// ClassProgressReport summarises a student's coding work in one class.
type ClassProgressReport struct {
	Exercises          []ExerciseProgress `json:"exercises"`
	TotalExercises     int                `json:"totalExercises"`
	CompletedExercises int                `json:"completedExercises"`
	TotalSubmissions   int                `json:"totalSubmissions"`
	AverageScore       float64            `json:"averageScore"`
}

// ClassProgress builds the score overview for a class. Only exercises with at
// least one submission get a row; the average covers every submission.
func ClassProgress(exercises []models.Exercise, submissions []models.Submission) ClassProgressReport {
	attempts := map[uint]int{}
	for _, submission := range submissions {
		attempts[submission.ExerciseID]++
	}

	report := ClassProgressReport{
		Exercises:          []ExerciseProgress{},
		TotalExercises:     len(exercises),
		CompletedExercises: CompletedCount(submissions),
		TotalSubmissions:   len(submissions),
	}

	for _, exercise := range exercises {
		count := attempts[exercise.ID]
		if count == 0 {
			continue
		}
		report.Exercises = append(report.Exercises, ExerciseProgress{
			ExerciseID:  exercise.ID,
			Title:       exercise.Title,
			LessonID:    exercise.LessonID,
			LessonTitle: exercise.LessonTitle,
			Attempts:    count,
			Status:      DeriveStatus(exercise.ID, submissions),
		})
	}

	if len(submissions) > 0 {
		var sum float64
		for _, submission := range submissions {
			if submission.Score != nil {
				sum += *submission.Score
			}
		}
		report.AverageScore = roundTenth(sum / float64(len(submissions)))
	}
	return report
}

// ExerciseWithStatus pairs an exercise with its derived status.
type ExerciseWithStatus struct {
	Exercise models.Exercise       `json:"exercise"`
	Status   DerivedExerciseStatus `json:"status"`
}

// LessonStatuses derives the status of every exercise in a lesson.
func LessonStatuses(exercises []models.Exercise, submissions []models.Submission) []ExerciseWithStatus {
	result := make([]ExerciseWithStatus, 0, len(exercises))
	for _, exercise := range exercises {
		result = append(result, ExerciseWithStatus{
			Exercise: exercise,
			Status:   DeriveStatus(exercise.ID, submissions),
		})
	}
	return result
}

// CompletedCount returns the number of distinct exercises with an accepted submission.
func CompletedCount(submissions []models.Submission) int {
	completed := map[uint]struct{}{}
	for _, submission := range submissions {
		if submission.Outcome() == models.SubmissionAccepted {
			completed[submission.ExerciseID] = struct{}{}
		}
	}
	return len(completed)
}

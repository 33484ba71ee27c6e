package dto

import (
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
)

// SupportedLanguages lists the languages a student may submit.
var SupportedLanguages = []string{"python", "javascript", "java", "cpp", "csharp"}

// SolutionRequest is the code a student runs or submits.
type SolutionRequest struct {
	Code     string `json:"code" validate:"required,max=65536"`
	Language string `json:"language" validate:"required,oneof=python javascript java cpp csharp"`
}

// TestCaseView is a test case that may be shown to students.
type TestCaseView struct {
	Index          int    `json:"index"`
	TestCaseID     uint   `json:"testCaseId"`
	InputData      string `json:"inputData"`
	ExpectedOutput string `json:"expectedOutput"`
}

// ExerciseView is an exercise as rendered to students. Hidden test cases are
// counted but never listed.
type ExerciseView struct {
	ID              uint           `json:"exerciseId"`
	LessonID        uint           `json:"lessonId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	ExampleInput    string         `json:"exampleInput"`
	ExampleOutput   string         `json:"exampleOutput"`
	InitialCode     string         `json:"initialCode"`
	TestCases       []TestCaseView `json:"testCases"`
	TestCaseCount   int            `json:"testCaseCount"`
	HiddenTestCases int            `json:"hiddenTestCases"`
}

// NewExerciseView converts a backend exercise into its student view.
func NewExerciseView(exercise models.Exercise) ExerciseView {
	view := ExerciseView{
		ID:            exercise.ID,
		LessonID:      exercise.LessonID,
		Title:         exercise.Title,
		Description:   exercise.Description,
		ExampleInput:  exercise.ExampleInput,
		ExampleOutput: exercise.ExampleOutput,
		InitialCode:   exercise.InitialCode,
		TestCases:     []TestCaseView{},
		TestCaseCount: len(exercise.TestCases),
	}
	for i, tc := range exercise.TestCases {
		if tc.IsHidden {
			view.HiddenTestCases++
			continue
		}
		view.TestCases = append(view.TestCases, TestCaseView{
			Index:          i,
			TestCaseID:     tc.ID,
			InputData:      tc.InputData,
			ExpectedOutput: tc.ExpectedOutput,
		})
	}
	return view
}

// AttemptView is the student-facing state of the exercise workspace.
type AttemptView struct {
	ExerciseID         uint                  `json:"exerciseId"`
	State              grading.State         `json:"state"`
	Verdicts           []models.TrialVerdict `json:"verdicts"`
	Passed             int                   `json:"passed"`
	Total              int                   `json:"total"`
	AllPass            bool                  `json:"allPass"`
	RunEnabled         bool                  `json:"runEnabled"`
	FinalSubmitEnabled bool                  `json:"finalSubmitEnabled"`
	RunError           string                `json:"runError,omitempty"`
	Final              *grading.FinalOutcome `json:"final,omitempty"`
}

// NewAttemptView hides verdicts of hidden test cases while keeping them in the counts.
func NewAttemptView(snapshot grading.Snapshot) AttemptView {
	return AttemptView{
		ExerciseID:         snapshot.ExerciseID,
		State:              snapshot.State,
		Verdicts:           grading.Visible(snapshot.Verdicts),
		Passed:             snapshot.Passed,
		Total:              snapshot.Total,
		AllPass:            snapshot.AllPass,
		RunEnabled:         snapshot.RunEnabled,
		FinalSubmitEnabled: snapshot.FinalSubmitEnabled,
		RunError:           snapshot.RunError,
		Final:              snapshot.Final,
	}
}

// WorkspaceResponse is returned when a student opens an exercise.
type WorkspaceResponse struct {
	Exercise ExerciseView                  `json:"exercise"`
	Status   grading.DerivedExerciseStatus `json:"status"`
	Attempt  AttemptView                   `json:"attempt"`
}

// AttemptResponse is returned by run, submit and dismiss actions.
type AttemptResponse struct {
	Attempt AttemptView `json:"attempt"`
	// Stale is set when the result arrived after the workspace moved on and was discarded.
	Stale bool `json:"stale"`
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/codelab-portal/internal/models"
)

// SolutionInput is the code a student sends for a run or a final submission.
type SolutionInput struct {
	StudentID  uint
	ExerciseID uint
	Code       string
	Language   string
}

// FinalSolutionInput adds the verdict summary recorded with a final submission.
type FinalSolutionInput struct {
	SolutionInput
	SubmittedAt     time.Time
	Status          string
	Result          string
	TestCasesPassed int
	TotalTestCases  int
}

type submissionRequest struct {
	StudentID       uint    `json:"studentID"`
	ExerciseID      uint    `json:"exerciseID"`
	Code            string  `json:"code"`
	Language        string  `json:"programmingLanguage"`
	IsTrial         bool    `json:"isTrial"`
	SubmittedAt     *string `json:"submittedAt,omitempty"`
	Status          string  `json:"status,omitempty"`
	Result          string  `json:"result,omitempty"`
	TestCasesPassed *int    `json:"testCasesPassed,omitempty"`
	TotalTestCases  *int    `json:"totalTestCases,omitempty"`
}

type scoreRequest struct {
	Score float64 `json:"score"`
}

// RunSolution executes code against the exercise's test cases without recording
// a submission. The response must carry a details array.
func (c *Client) RunSolution(ctx context.Context, sess Session, input SolutionInput) (models.RunResult, error) {
	body, contentType, err := jsonBody(submissionRequest{
		StudentID:  input.StudentID,
		ExerciseID: input.ExerciseID,
		Code:       input.Code,
		Language:   input.Language,
		IsTrial:    true,
	})
	if err != nil {
		return models.RunResult{}, err
	}

	raw, err := c.send(ctx, sess, "run_solution", http.MethodPost, c.getURL("/Submission/submissions"), body, contentType)
	if err != nil {
		return models.RunResult{}, err
	}
	if err := validateRunResult(raw); err != nil {
		return models.RunResult{}, err
	}

	var result models.RunResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.RunResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}

// SubmitSolution records a final submission.
func (c *Client) SubmitSolution(ctx context.Context, sess Session, input FinalSolutionInput) (models.Submission, error) {
	submittedAt := input.SubmittedAt.UTC().Format(time.RFC3339)
	passed := input.TestCasesPassed
	total := input.TotalTestCases

	var submission models.Submission
	err := c.call(ctx, sess, "submit_solution", http.MethodPost, c.getURL("/Submission/submissions"), submissionRequest{
		StudentID:       input.StudentID,
		ExerciseID:      input.ExerciseID,
		Code:            input.Code,
		Language:        input.Language,
		IsTrial:         false,
		SubmittedAt:     &submittedAt,
		Status:          input.Status,
		Result:          input.Result,
		TestCasesPassed: &passed,
		TotalTestCases:  &total,
	}, &submission)
	return submission, err
}

// StudentClassSubmissions lists a student's submissions within a class.
func (c *Client) StudentClassSubmissions(ctx context.Context, sess Session, studentID, classID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := c.call(ctx, sess, "student_class_submissions", http.MethodGet,
		c.getURL("/Submission/students/%d/classes/%d", studentID, classID), nil, &submissions)
	return submissions, err
}

// StudentLessonSubmissions lists a student's submissions within a lesson.
func (c *Client) StudentLessonSubmissions(ctx context.Context, sess Session, studentID, lessonID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := c.call(ctx, sess, "student_lesson_submissions", http.MethodGet,
		c.getURL("/Submission/students/%d/lessons/%d", studentID, lessonID), nil, &submissions)
	return submissions, err
}

// ExerciseSubmissions lists every submission made for an exercise.
func (c *Client) ExerciseSubmissions(ctx context.Context, sess Session, exerciseID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := c.call(ctx, sess, "exercise_submissions", http.MethodGet,
		c.getURL("/CodingExercise/%d/submissions", exerciseID), nil, &submissions)
	return submissions, err
}

// Submission fetches one submission.
func (c *Client) Submission(ctx context.Context, sess Session, submissionID uint) (models.Submission, error) {
	var submission models.Submission
	err := c.call(ctx, sess, "submission_detail", http.MethodGet,
		c.getURL("/Submission/%d", submissionID), nil, &submission)
	return submission, err
}

// UpdateSubmissionScore overrides the score of a submission.
func (c *Client) UpdateSubmissionScore(ctx context.Context, sess Session, submissionID uint, score float64) error {
	return c.call(ctx, sess, "update_submission_score", http.MethodPatch,
		c.getURL("/Submission/%d", submissionID), scoreRequest{Score: score}, nil)
}

// EncodeOutcomes serialises per-test-case outcomes the way the backend stores them.
func EncodeOutcomes(outcomes []models.TestCaseOutcome) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(outcomes); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/codelab-portal/internal/models"
)

// TestCaseInput is a test case as written by a teacher.
type TestCaseInput struct {
	InputData      string `json:"inputData"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"`
}

// ExerciseInput is the payload for creating or updating an exercise.
type ExerciseInput struct {
	LessonID      uint            `json:"lessonID"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ExampleInput  string          `json:"exampleInput"`
	ExampleOutput string          `json:"exampleOutput"`
	InitialCode   string          `json:"initialCode,omitempty"`
	TestCases     []TestCaseInput `json:"testCases"`
}

// Exercise fetches one exercise with its test cases.
func (c *Client) Exercise(ctx context.Context, sess Session, exerciseID uint) (models.Exercise, error) {
	var exercise models.Exercise
	err := c.call(ctx, sess, "exercise_detail", http.MethodGet,
		c.getURL("/CodingExercise/coding-exercise-detail/%d", exerciseID), nil, &exercise)
	return exercise, err
}

// LessonExercises lists the exercises of a lesson.
func (c *Client) LessonExercises(ctx context.Context, sess Session, lessonID uint) ([]models.Exercise, error) {
	var exercises []models.Exercise
	target := withQuery(c.getURL("/CodingExercise/coding-exercise"), url.Values{"lessonId": {strconv.FormatUint(uint64(lessonID), 10)}})
	err := c.call(ctx, sess, "lesson_exercises", http.MethodGet, target, nil, &exercises)
	return exercises, err
}

// ClassExercises lists every exercise across the lessons of a class.
func (c *Client) ClassExercises(ctx context.Context, sess Session, classID uint) ([]models.Exercise, error) {
	var exercises []models.Exercise
	target := withQuery(c.getURL("/CodingExercise/class-exercises"), url.Values{"classId": {strconv.FormatUint(uint64(classID), 10)}})
	err := c.call(ctx, sess, "class_exercises", http.MethodGet, target, nil, &exercises)
	return exercises, err
}

// CreateExercise creates an exercise.
func (c *Client) CreateExercise(ctx context.Context, sess Session, input ExerciseInput) (models.Exercise, error) {
	var exercise models.Exercise
	err := c.call(ctx, sess, "create_exercise", http.MethodPost, c.getURL("/CodingExercise"), input, &exercise)
	return exercise, err
}

// UpdateExercise replaces an exercise and its test cases.
func (c *Client) UpdateExercise(ctx context.Context, sess Session, exerciseID uint, input ExerciseInput) error {
	return c.call(ctx, sess, "update_exercise", http.MethodPut, c.getURL("/CodingExercise/%d", exerciseID), input, nil)
}

// DeleteExercise removes an exercise.
func (c *Client) DeleteExercise(ctx context.Context, sess Session, exerciseID uint) error {
	return c.call(ctx, sess, "delete_exercise", http.MethodDelete, c.getURL("/CodingExercise/%d", exerciseID), nil, nil)
}

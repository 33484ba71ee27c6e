package service

import (
	"context"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/models"
)

// AuthGateway covers the backend sign-in endpoints.
type AuthGateway interface {
	StudentLogin(ctx context.Context, studentID, password string) (string, error)
	TeacherLogin(ctx context.Context, email, password string) (string, error)
	CurrentStudent(ctx context.Context, sess backend.Session) (models.Student, error)
	CurrentTeacher(ctx context.Context, sess backend.Session) (models.Teacher, error)
}

// ExerciseGateway covers the backend coding-exercise endpoints.
type ExerciseGateway interface {
	Exercise(ctx context.Context, sess backend.Session, exerciseID uint) (models.Exercise, error)
	LessonExercises(ctx context.Context, sess backend.Session, lessonID uint) ([]models.Exercise, error)
	ClassExercises(ctx context.Context, sess backend.Session, classID uint) ([]models.Exercise, error)
	CreateExercise(ctx context.Context, sess backend.Session, input backend.ExerciseInput) (models.Exercise, error)
	UpdateExercise(ctx context.Context, sess backend.Session, exerciseID uint, input backend.ExerciseInput) error
	DeleteExercise(ctx context.Context, sess backend.Session, exerciseID uint) error
}

// SubmissionGateway covers runs, final submissions and their listings.
type SubmissionGateway interface {
	RunSolution(ctx context.Context, sess backend.Session, input backend.SolutionInput) (models.RunResult, error)
	SubmitSolution(ctx context.Context, sess backend.Session, input backend.FinalSolutionInput) (models.Submission, error)
	StudentClassSubmissions(ctx context.Context, sess backend.Session, studentID, classID uint) ([]models.Submission, error)
	StudentLessonSubmissions(ctx context.Context, sess backend.Session, studentID, lessonID uint) ([]models.Submission, error)
	ExerciseSubmissions(ctx context.Context, sess backend.Session, exerciseID uint) ([]models.Submission, error)
	Submission(ctx context.Context, sess backend.Session, submissionID uint) (models.Submission, error)
	UpdateSubmissionScore(ctx context.Context, sess backend.Session, submissionID uint, score float64) error
}

// ClassGateway covers classes, lessons, rosters and lesson contents.
type ClassGateway interface {
	StudentClasses(ctx context.Context, sess backend.Session) ([]models.Class, error)
	TeacherClasses(ctx context.Context, sess backend.Session, teacherID uint) ([]models.Class, error)
	Class(ctx context.Context, sess backend.Session, classID uint) (models.Class, error)
	ClassLessons(ctx context.Context, sess backend.Session, classID uint) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, sess backend.Session, classID uint, input backend.LessonInput) (models.Lesson, error)
	ClassStudents(ctx context.Context, sess backend.Session, classID uint) ([]models.Student, error)
	LessonContents(ctx context.Context, sess backend.Session, lessonID uint) ([]models.LessonContent, error)
	UploadLessonContent(ctx context.Context, sess backend.Session, lessonID uint, upload backend.ContentUpload) (models.LessonContent, error)
	DeleteLessonContent(ctx context.Context, sess backend.Session, contentID uint) error
}

// Gateway is the full backend surface used by the portal services.
type Gateway interface {
	AuthGateway
	ExerciseGateway
	SubmissionGateway
	ClassGateway
}

var _ Gateway = (*backend.Client)(nil)

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func floatPointer(v float64) *float64 {
	return &v
}

func ptrUint(v uint) *uint {
	return &v
}

func studentSession() *session.Session {
	return &session.Session{ID: "sess-student", Role: session.RoleStudent, UserID: 7, BackendToken: "backend-token"}
}

func teacherSession() *session.Session {
	return &session.Session{ID: "sess-teacher", Role: session.RoleTeacher, UserID: 3, BackendToken: "backend-token"}
}

// fakeGateway is an in-memory learning backend.
type fakeGateway struct {
	mu sync.Mutex

	studentToken string
	teacherToken string
	student      models.Student
	teacher      models.Teacher
	teacherErr   error

	exercises          map[uint]models.Exercise
	exerciseErr        error
	lessonExercises    map[uint][]models.Exercise
	classExercises     map[uint][]models.Exercise
	exerciseSubs       map[uint][]models.Submission
	lessonSubs         map[uint][]models.Submission
	classSubs          map[string][]models.Submission
	classSubsErr       map[uint]error
	submissions        map[uint]models.Submission
	classes            []models.Class
	classLessons       map[uint][]models.Lesson
	classStudents      map[uint][]models.Student
	lessonContents     map[uint][]models.LessonContent
	runResults         []models.RunResult
	runErr             error
	runHook            func()
	submitResult       models.Submission
	submitErr          error
	uploads            []backend.ContentUpload
	createdExercises   []backend.ExerciseInput
	updatedExercises   map[uint]backend.ExerciseInput
	deletedExercises   []uint
	deletedContents    []uint
	scoreUpdates       map[uint]float64
	finalInputs        []backend.FinalSolutionInput
	runInputs          []backend.SolutionInput
	exerciseSubsCalls  int
	teacherClassesCall int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		studentToken:     "student-token",
		teacherToken:     "teacher-token",
		exercises:        map[uint]models.Exercise{},
		lessonExercises:  map[uint][]models.Exercise{},
		classExercises:   map[uint][]models.Exercise{},
		exerciseSubs:     map[uint][]models.Submission{},
		lessonSubs:       map[uint][]models.Submission{},
		classSubs:        map[string][]models.Submission{},
		classSubsErr:     map[uint]error{},
		submissions:      map[uint]models.Submission{},
		classLessons:     map[uint][]models.Lesson{},
		classStudents:    map[uint][]models.Student{},
		lessonContents:   map[uint][]models.LessonContent{},
		updatedExercises: map[uint]backend.ExerciseInput{},
		scoreUpdates:     map[uint]float64{},
	}
}

func classSubsKey(studentID, classID uint) string {
	return fmt.Sprintf("%d/%d", studentID, classID)
}

func (f *fakeGateway) StudentLogin(ctx context.Context, studentID, password string) (string, error) {
	if password != "secret" {
		return "", backend.ErrUnauthorized
	}
	return f.studentToken, nil
}

func (f *fakeGateway) TeacherLogin(ctx context.Context, email, password string) (string, error) {
	if password != "secret" {
		return "", backend.ErrUnauthorized
	}
	return f.teacherToken, nil
}

func (f *fakeGateway) CurrentStudent(ctx context.Context, sess backend.Session) (models.Student, error) {
	if sess.Token() == "" {
		return models.Student{}, backend.ErrUnauthorized
	}
	return f.student, nil
}

func (f *fakeGateway) CurrentTeacher(ctx context.Context, sess backend.Session) (models.Teacher, error) {
	if f.teacherErr != nil {
		return models.Teacher{}, f.teacherErr
	}
	return f.teacher, nil
}

func (f *fakeGateway) Exercise(ctx context.Context, sess backend.Session, exerciseID uint) (models.Exercise, error) {
	if f.exerciseErr != nil {
		return models.Exercise{}, f.exerciseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	exercise, ok := f.exercises[exerciseID]
	if !ok {
		return models.Exercise{}, &backend.RejectionError{StatusCode: 404, Message: "exercise not found"}
	}
	return exercise, nil
}

func (f *fakeGateway) LessonExercises(ctx context.Context, sess backend.Session, lessonID uint) ([]models.Exercise, error) {
	return f.lessonExercises[lessonID], nil
}

func (f *fakeGateway) ClassExercises(ctx context.Context, sess backend.Session, classID uint) ([]models.Exercise, error) {
	return f.classExercises[classID], nil
}

func (f *fakeGateway) CreateExercise(ctx context.Context, sess backend.Session, input backend.ExerciseInput) (models.Exercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdExercises = append(f.createdExercises, input)
	exercise := models.Exercise{ID: uint(100 + len(f.createdExercises)), LessonID: input.LessonID, Title: input.Title, Description: input.Description}
	for _, tc := range input.TestCases {
		exercise.TestCases = append(exercise.TestCases, models.TestCase{InputData: tc.InputData, ExpectedOutput: tc.ExpectedOutput, IsHidden: tc.IsHidden})
	}
	return exercise, nil
}

func (f *fakeGateway) UpdateExercise(ctx context.Context, sess backend.Session, exerciseID uint, input backend.ExerciseInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedExercises[exerciseID] = input
	return nil
}

func (f *fakeGateway) DeleteExercise(ctx context.Context, sess backend.Session, exerciseID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedExercises = append(f.deletedExercises, exerciseID)
	return nil
}

func (f *fakeGateway) RunSolution(ctx context.Context, sess backend.Session, input backend.SolutionInput) (models.RunResult, error) {
	f.mu.Lock()
	f.runInputs = append(f.runInputs, input)
	hook := f.runHook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.runErr != nil {
		return models.RunResult{}, f.runErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runResults) == 0 {
		return models.RunResult{Details: []models.BackendVerdict{}}, nil
	}
	result := f.runResults[0]
	if len(f.runResults) > 1 {
		f.runResults = f.runResults[1:]
	}
	return result, nil
}

func (f *fakeGateway) SubmitSolution(ctx context.Context, sess backend.Session, input backend.FinalSolutionInput) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalInputs = append(f.finalInputs, input)
	if f.submitErr != nil {
		return models.Submission{}, f.submitErr
	}
	return f.submitResult, nil
}

func (f *fakeGateway) StudentClassSubmissions(ctx context.Context, sess backend.Session, studentID, classID uint) ([]models.Submission, error) {
	if err := f.classSubsErr[studentID]; err != nil {
		return nil, err
	}
	return f.classSubs[classSubsKey(studentID, classID)], nil
}

func (f *fakeGateway) StudentLessonSubmissions(ctx context.Context, sess backend.Session, studentID, lessonID uint) ([]models.Submission, error) {
	return f.lessonSubs[lessonID], nil
}

func (f *fakeGateway) ExerciseSubmissions(ctx context.Context, sess backend.Session, exerciseID uint) ([]models.Submission, error) {
	f.mu.Lock()
	f.exerciseSubsCalls++
	f.mu.Unlock()
	return f.exerciseSubs[exerciseID], nil
}

func (f *fakeGateway) Submission(ctx context.Context, sess backend.Session, submissionID uint) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	submission, ok := f.submissions[submissionID]
	if !ok {
		return models.Submission{}, backend.ErrNotFound
	}
	return submission, nil
}

func (f *fakeGateway) UpdateSubmissionScore(ctx context.Context, sess backend.Session, submissionID uint, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreUpdates[submissionID] = score
	if submission, ok := f.submissions[submissionID]; ok {
		submission.Score = &score
		f.submissions[submissionID] = submission
	}
	return nil
}

func (f *fakeGateway) StudentClasses(ctx context.Context, sess backend.Session) ([]models.Class, error) {
	return f.classes, nil
}

func (f *fakeGateway) TeacherClasses(ctx context.Context, sess backend.Session, teacherID uint) ([]models.Class, error) {
	f.mu.Lock()
	f.teacherClassesCall++
	f.mu.Unlock()
	return f.classes, nil
}

func (f *fakeGateway) Class(ctx context.Context, sess backend.Session, classID uint) (models.Class, error) {
	for _, class := range f.classes {
		if class.ID == classID {
			return class, nil
		}
	}
	return models.Class{}, backend.ErrNotFound
}

func (f *fakeGateway) ClassLessons(ctx context.Context, sess backend.Session, classID uint) ([]models.Lesson, error) {
	return f.classLessons[classID], nil
}

func (f *fakeGateway) CreateLesson(ctx context.Context, sess backend.Session, classID uint, input backend.LessonInput) (models.Lesson, error) {
	return models.Lesson{ID: 55, ClassID: classID, Title: input.Title, Label: input.Label}, nil
}

func (f *fakeGateway) ClassStudents(ctx context.Context, sess backend.Session, classID uint) ([]models.Student, error) {
	return f.classStudents[classID], nil
}

func (f *fakeGateway) LessonContents(ctx context.Context, sess backend.Session, lessonID uint) ([]models.LessonContent, error) {
	return f.lessonContents[lessonID], nil
}

func (f *fakeGateway) UploadLessonContent(ctx context.Context, sess backend.Session, lessonID uint, upload backend.ContentUpload) (models.LessonContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload)
	return models.LessonContent{ID: 900, LessonID: lessonID, Title: upload.Title, ContentType: upload.ContentType, Category: upload.Category}, nil
}

func (f *fakeGateway) DeleteLessonContent(ctx context.Context, sess backend.Session, contentID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedContents = append(f.deletedContents, contentID)
	return nil
}

// memoryPublisher captures published events.
type memoryPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *memoryPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *memoryPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

// memoryRecorder captures audit entries.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *memoryRecorder) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return dto.ActivityResponse{}, nil
}

func (r *memoryRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

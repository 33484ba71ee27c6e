package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/codelab-portal/internal/models"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// LessonInput is the payload for creating a lesson.
type LessonInput struct {
	Title string `json:"title"`
	Label string `json:"label,omitempty"`
}

// ContentUpload describes a file attached to a lesson.
type ContentUpload struct {
	Title       string
	ContentType string
	Category    string
	FileName    string
	MIMEType    string
	Data        []byte
}

// StudentClasses lists the classes the session's student is enrolled in.
func (c *Client) StudentClasses(ctx context.Context, sess Session) ([]models.Class, error) {
	var classes []models.Class
	err := c.call(ctx, sess, "student_classes", http.MethodGet, c.getURL("/student/me/classes"), nil, &classes)
	return classes, err
}

// TeacherClasses lists the classes taught by teacherID.
func (c *Client) TeacherClasses(ctx context.Context, sess Session, teacherID uint) ([]models.Class, error) {
	var classes []models.Class
	target := withQuery(c.getURL("/class/getClassByTeacherId"), url.Values{"teacherId": {strconv.FormatUint(uint64(teacherID), 10)}})
	err := c.call(ctx, sess, "teacher_classes", http.MethodGet, target, nil, &classes)
	return classes, err
}

// Class fetches one class.
func (c *Client) Class(ctx context.Context, sess Session, classID uint) (models.Class, error) {
	var class models.Class
	err := c.call(ctx, sess, "class_detail", http.MethodGet, c.getURL("/class/%d", classID), nil, &class)
	return class, err
}

// ClassLessons lists the lessons of a class.
func (c *Client) ClassLessons(ctx context.Context, sess Session, classID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	target := withQuery(c.getURL("/Lesson/class-lessons"), url.Values{"classId": {strconv.FormatUint(uint64(classID), 10)}})
	err := c.call(ctx, sess, "class_lessons", http.MethodGet, target, nil, &lessons)
	return lessons, err
}

// CreateLesson adds a lesson to a class.
func (c *Client) CreateLesson(ctx context.Context, sess Session, classID uint, input LessonInput) (models.Lesson, error) {
	var lesson models.Lesson
	err := c.call(ctx, sess, "create_lesson", http.MethodPost, c.getURL("/classes/%d/lessons", classID), input, &lesson)
	return lesson, err
}

// ClassStudents lists the students enrolled in a class.
func (c *Client) ClassStudents(ctx context.Context, sess Session, classID uint) ([]models.Student, error) {
	var students []models.Student
	target := withQuery(c.getURL("/ClassStudent/getStudentByClassId"), url.Values{"classId": {strconv.FormatUint(uint64(classID), 10)}})
	err := c.call(ctx, sess, "class_students", http.MethodGet, target, nil, &students)
	return students, err
}

// LessonContents lists the resources attached to a lesson.
func (c *Client) LessonContents(ctx context.Context, sess Session, lessonID uint) ([]models.LessonContent, error) {
	var contents []models.LessonContent
	target := withQuery(c.getURL("/LessonContent/lesson-detail"), url.Values{"lessonId": {strconv.FormatUint(uint64(lessonID), 10)}})
	err := c.call(ctx, sess, "lesson_contents", http.MethodGet, target, nil, &contents)
	return contents, err
}

// UploadLessonContent attaches a file to a lesson as multipart form data.
func (c *Client) UploadLessonContent(ctx context.Context, sess Session, lessonID uint, upload ContentUpload) (models.LessonContent, error) {
	buf := bytes.Buffer{}
	w := multipart.NewWriter(&buf)
	for _, field := range []struct{ name, value string }{
		{"title", upload.Title},
		{"contentType", upload.ContentType},
		{"category", upload.Category},
	} {
		if err := w.WriteField(field.name, field.value); err != nil {
			return models.LessonContent{}, err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.FileName)))
	header.Set("Content-Type", upload.MIMEType)
	fw, err := w.CreatePart(header)
	if err != nil {
		return models.LessonContent{}, err
	}
	if _, err := io.Copy(fw, bytes.NewReader(upload.Data)); err != nil {
		return models.LessonContent{}, err
	}
	if err := w.Close(); err != nil {
		return models.LessonContent{}, err
	}

	raw, err := c.send(ctx, sess, "upload_lesson_content", http.MethodPost,
		c.getURL("/lessons/%d/contents", lessonID), &buf, w.FormDataContentType())
	if err != nil {
		return models.LessonContent{}, err
	}

	var content models.LessonContent
	if len(bytes.TrimSpace(raw)) == 0 {
		return content, nil
	}
	err = decode(raw, &content)
	return content, err
}

// DeleteLessonContent removes a lesson resource.
func (c *Client) DeleteLessonContent(ctx context.Context, sess Session, contentID uint) error {
	return c.call(ctx, sess, "delete_lesson_content", http.MethodDelete, c.getURL("/LessonContent/%d", contentID), nil, nil)
}

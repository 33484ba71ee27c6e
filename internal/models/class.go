package models

// Lesson content categories, in display order.
const (
	ContentCategoryBeforeClass = "Hoạt động trước khi lên lớp"
	ContentCategoryInClass     = "Hoạt động trên lớp"
	ContentCategoryAfterClass  = "Hoạt động sau khi lên lớp"
)

// ContentCategories lists the lesson content categories in display order.
var ContentCategories = []string{
	ContentCategoryBeforeClass,
	ContentCategoryInClass,
	ContentCategoryAfterClass,
}

// Lesson content types accepted by the backend.
const (
	ContentTypePDF   = "PDF"
	ContentTypeVideo = "Video"
)

// Class is a course section taught by a teacher.
type Class struct {
	ID           uint     `json:"classID"`
	ClassName    string   `json:"className"`
	SubjectID    string   `json:"subjectID,omitempty"`
	SubjectName  string   `json:"subjectName"`
	TeacherID    uint     `json:"teacherID,omitempty"`
	StudentCount int      `json:"studentCount"`
	FinalScore   *float64 `json:"finalScore,omitempty"`
}

// Lesson belongs to a class.
type Lesson struct {
	ID       uint   `json:"lessonID"`
	ClassID  uint   `json:"classID"`
	Title    string `json:"title"`
	Label    string `json:"label"`
	Progress string `json:"progess"`
	Files    string `json:"files"`
}

// LessonContent is a downloadable resource attached to a lesson.
type LessonContent struct {
	ID          uint   `json:"contentID"`
	LessonID    uint   `json:"lessonID"`
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
	Category    string `json:"category"`
	FileURL     string `json:"fileUrl"`
}

// Student is a learner profile.
type Student struct {
	ID          uint      `json:"studentID"`
	StudentCode string    `json:"studentCode"`
	FullName    string    `json:"fullName"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone"`
	DateOfBirth Timestamp `json:"dateOfBirth"`
}

// DisplayName returns the full name, falling back to "last first".
func (s Student) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	if s.FirstName == "" {
		return s.LastName
	}
	return s.LastName + " " + s.FirstName
}

// Teacher is an instructor profile.
type Teacher struct {
	ID       uint   `json:"teacherID"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

package models

// TestCase is one declared input/expected-output pair of an exercise. Hidden test
// cases are not shown to students but are still judged.
type TestCase struct {
	ID             uint   `json:"testCaseID"`
	InputData      string `json:"inputData"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"`
}

// Exercise is a coding problem owned by the learning backend.
type Exercise struct {
	ID            uint       `json:"exerciseID"`
	LessonID      uint       `json:"lessonID"`
	LessonTitle   string     `json:"lessonTitle,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ExampleInput  string     `json:"exampleInput"`
	ExampleOutput string     `json:"exampleOutput"`
	InitialCode   string     `json:"initialCode,omitempty"`
	CreatedAt     Timestamp  `json:"createdAt"`
	TestCases     []TestCase `json:"testCases"`
}

// VisibleTestCases returns the test cases that may be rendered to students.
func (e Exercise) VisibleTestCases() []TestCase {
	visible := make([]TestCase, 0, len(e.TestCases))
	for _, tc := range e.TestCases {
		if !tc.IsHidden {
			visible = append(visible, tc)
		}
	}
	return visible
}

package models

// VerdictPassMarker is the status string the backend reports for a passing test case.
const VerdictPassMarker = "✅ Pass"

// BackendVerdict is one element of the backend's per-test-case run details.
type BackendVerdict struct {
	Status string `json:"status"`
	Output string `json:"output"`
}

// Passed reports whether the backend marked the test case as passing.
func (v BackendVerdict) Passed() bool {
	return v.Status == VerdictPassMarker
}

// RunResult is the backend response to a trial run.
type RunResult struct {
	PassedTestCases int              `json:"passedTestCases"`
	TotalTestCases  int              `json:"totalTestCases"`
	Details         []BackendVerdict `json:"details"`
	Result          string           `json:"result,omitempty"`
}

// TrialVerdict pairs a declared test case with the outcome of the latest run.
type TrialVerdict struct {
	Index      int    `json:"index"`
	TestCaseID uint   `json:"testCaseId"`
	Input      string `json:"input"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	IsCorrect  bool   `json:"isCorrect"`
	Hidden     bool   `json:"hidden"`
}

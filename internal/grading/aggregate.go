// Package grading holds the portal's exercise workflow rules: pairing backend
// verdicts with declared test cases, gating final submissions, deriving exercise
// status from submission history and summarising teacher dashboards. Everything
// here is free of I/O.
package grading

import "github.com/noah-isme/codelab-portal/internal/models"

// RunSummary counts the passing verdicts of a run against the declared test cases.
type RunSummary struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// Aggregate pairs backend verdicts with test cases by position. Verdicts beyond the
// declared test cases are ignored; test cases without a verdict produce no entry.
func Aggregate(testCases []models.TestCase, verdicts []models.BackendVerdict) []models.TrialVerdict {
	n := len(testCases)
	if len(verdicts) < n {
		n = len(verdicts)
	}

	result := make([]models.TrialVerdict, 0, n)
	for i := 0; i < n; i++ {
		tc := testCases[i]
		verdict := verdicts[i]
		result = append(result, models.TrialVerdict{
			Index:      i,
			TestCaseID: tc.ID,
			Input:      tc.InputData,
			Expected:   tc.ExpectedOutput,
			Actual:     verdict.Output,
			IsCorrect:  verdict.Passed(),
			Hidden:     tc.IsHidden,
		})
	}
	return result
}

// Summary counts passing verdicts. total is the number of declared test cases,
// hidden ones included.
func Summary(verdicts []models.TrialVerdict, total int) RunSummary {
	summary := RunSummary{Total: total}
	for _, v := range verdicts {
		if v.IsCorrect {
			summary.Passed++
		}
	}
	return summary
}

// AllPass reports whether a run resolved every declared test case and every
// verdict is correct. An empty aggregate never passes.
func AllPass(verdicts []models.TrialVerdict, testCases int) bool {
	if len(verdicts) == 0 || len(verdicts) != testCases {
		return false
	}
	for _, v := range verdicts {
		if !v.IsCorrect {
			return false
		}
	}
	return true
}

// Visible strips hidden test cases from a verdict list for display.
func Visible(verdicts []models.TrialVerdict) []models.TrialVerdict {
	visible := make([]models.TrialVerdict, 0, len(verdicts))
	for _, v := range verdicts {
		if !v.Hidden {
			visible = append(visible, v)
		}
	}
	return visible
}

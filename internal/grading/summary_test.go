package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codelab-portal/internal/models"
)

func TestSummarizeEmptySubmissions(t *testing.T) {
	classes := []models.Class{{ID: 1, StudentCount: 12}, {ID: 2, StudentCount: 8}}
	exercises := []models.Exercise{{ID: 1}, {ID: 2}, {ID: 3}}

	summary := Summarize(classes, exercises, nil)
	require.Equal(t, 20, summary.TotalStudents)
	require.Equal(t, 2, summary.TotalClasses)
	require.Equal(t, 3, summary.TotalExercises)
	require.Zero(t, summary.TotalSubmissions)
	require.Zero(t, summary.AverageScore)
	require.Zero(t, summary.PassRate)
	require.Zero(t, summary.AverageExecutionTime)
	require.NotNil(t, summary.PopularLanguages)
	require.Empty(t, summary.PopularLanguages)
}

func TestSummarizeStatistics(t *testing.T) {
	submissions := []models.Submission{
		{ID: 1, Status: "Accepted", Score: floatPointer(100), ExecutionTime: 10, Language: "python"},
		{ID: 2, Status: "Failed", Score: floatPointer(40), ExecutionTime: 20, Language: "python"},
		{ID: 3, Status: "Accepted", Score: floatPointer(90), ExecutionTime: 30, Language: "cpp"},
		{ID: 4, Status: "Pending", ExecutionTime: 40, Language: "java"},
		{ID: 5, Status: "Failed", Score: floatPointer(20), ExecutionTime: 50, Language: "csharp"},
		{ID: 6, Status: "Failed", Score: floatPointer(0), ExecutionTime: 30, Language: "python"},
	}

	summary := Summarize([]models.Class{{StudentCount: 30}}, []models.Exercise{{ID: 1}}, submissions)
	require.Equal(t, 6, summary.TotalSubmissions)
	require.InDelta(t, 250.0/6.0, summary.AverageScore, 1e-9)
	require.InDelta(t, 30.0, summary.AverageExecutionTime, 1e-9)
	require.Equal(t, 33.3, summary.PassRate)

	require.Len(t, summary.PopularLanguages, 3)
	require.Equal(t, LanguageShare{Language: "python", Count: 3, Percentage: 50}, summary.PopularLanguages[0])
	require.Equal(t, LanguageShare{Language: "cpp", Count: 1, Percentage: 16.7}, summary.PopularLanguages[1])
	require.Equal(t, LanguageShare{Language: "csharp", Count: 1, Percentage: 16.7}, summary.PopularLanguages[2])
}

func TestSummarizeIsDeterministic(t *testing.T) {
	submissions := []models.Submission{
		{Language: "go"}, {Language: "rust"}, {Language: "c"}, {Language: "zig"},
	}
	first := Summarize(nil, nil, submissions)
	second := Summarize(nil, nil, submissions)
	require.Equal(t, first, second)
	require.Equal(t, []string{"c", "go", "rust"}, []string{
		first.PopularLanguages[0].Language,
		first.PopularLanguages[1].Language,
		first.PopularLanguages[2].Language,
	})
}

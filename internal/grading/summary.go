package grading

import (
	"math"
	"sort"

	"github.com/noah-isme/codelab-portal/internal/models"
)

const popularLanguageLimit = 3

// LanguageShare is the submission count of one programming language.
type LanguageShare struct {
	Language   string  `json:"language"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DashboardSummary holds the teacher dashboard statistics.
type DashboardSummary struct {
	TotalStudents        int             `json:"totalStudents"`
	TotalClasses         int             `json:"totalClasses"`
	TotalExercises       int             `json:"totalExercises"`
	TotalSubmissions     int             `json:"totalSubmissions"`
	AverageScore         float64         `json:"averageScore"`
	PassRate             float64         `json:"passRate"`
	AverageExecutionTime float64         `json:"averageExecutionTime"`
	PopularLanguages     []LanguageShare `json:"popularLanguages"`
}

// Summarize computes dashboard statistics. Student totals trust the per-class
// counts reported by the backend. Submissions without a score count as zero.
func Summarize(classes []models.Class, exercises []models.Exercise, submissions []models.Submission) DashboardSummary {
	summary := DashboardSummary{
		TotalClasses:     len(classes),
		TotalExercises:   len(exercises),
		TotalSubmissions: len(submissions),
		PopularLanguages: []LanguageShare{},
	}
	for _, class := range classes {
		summary.TotalStudents += class.StudentCount
	}

	total := len(submissions)
	if total == 0 {
		return summary
	}

	var (
		scoreSum     float64
		durationSum  float64
		accepted     int
		languageHits = map[string]int{}
	)
	for _, submission := range submissions {
		if submission.Score != nil {
			scoreSum += *submission.Score
		}
		durationSum += submission.ExecutionTime
		if submission.Outcome() == models.SubmissionAccepted {
			accepted++
		}
		languageHits[submission.Language]++
	}

	summary.AverageScore = scoreSum / float64(total)
	summary.AverageExecutionTime = durationSum / float64(total)
	summary.PassRate = roundTenth(float64(accepted) / float64(total) * 100)
	summary.PopularLanguages = topLanguages(languageHits, total)
	return summary
}

func topLanguages(hits map[string]int, total int) []LanguageShare {
	shares := make([]LanguageShare, 0, len(hits))
	for language, count := range hits {
		shares = append(shares, LanguageShare{
			Language:   language,
			Count:      count,
			Percentage: roundTenth(float64(count) / float64(total) * 100),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count == shares[j].Count {
			return shares[i].Language < shares[j].Language
		}
		return shares[i].Count > shares[j].Count
	})
	if len(shares) > popularLanguageLimit {
		shares = shares[:popularLanguageLimit]
	}
	return shares
}

func roundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}

package dto

import (
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
)

// StudentProfileResponse describes the signed-in student.
type StudentProfileResponse struct {
	Student models.Student `json:"student"`
	Classes []models.Class `json:"classes"`
}

// ExerciseSummary is an exercise row with the student's derived status.
type ExerciseSummary struct {
	ID            uint                          `json:"exerciseId"`
	LessonID      uint                          `json:"lessonId"`
	Title         string                        `json:"title"`
	TestCaseCount int                           `json:"testCaseCount"`
	Status        grading.DerivedExerciseStatus `json:"status"`
}

// LessonExercisesResponse lists a lesson's exercises with statuses.
type LessonExercisesResponse struct {
	LessonID  uint              `json:"lessonId"`
	Exercises []ExerciseSummary `json:"exercises"`
	Completed int               `json:"completed"`
}

// LessonDetailResponse lists a lesson's resources grouped by activity category.
type LessonDetailResponse struct {
	LessonID uint           `json:"lessonId"`
	Groups   []ContentGroup `json:"groups"`
}

// ContentGroup holds the resources of one activity category.
type ContentGroup struct {
	Category string                 `json:"category"`
	Items    []models.LessonContent `json:"items"`
}

// GroupContents buckets contents by the known categories in display order.
// Unknown categories are collected in a trailing group.
func GroupContents(contents []models.LessonContent) []ContentGroup {
	groups := make([]ContentGroup, 0, len(models.ContentCategories)+1)
	index := map[string]int{}
	for _, category := range models.ContentCategories {
		index[category] = len(groups)
		groups = append(groups, ContentGroup{Category: category, Items: []models.LessonContent{}})
	}

	other := ContentGroup{Category: "", Items: []models.LessonContent{}}
	for _, content := range contents {
		if i, ok := index[content.Category]; ok {
			groups[i].Items = append(groups[i].Items, content)
			continue
		}
		other.Items = append(other.Items, content)
	}
	if len(other.Items) > 0 {
		groups = append(groups, other)
	}
	return groups
}

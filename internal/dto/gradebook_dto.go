package dto

// GradebookItem is one assignment line of a learner gradebook.
type GradebookItem struct {
	AssignmentID uint     `json:"assignment_id"`
	Title        string   `json:"title"`
	Weight       int      `json:"weight"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score"`
	IsLate       bool     `json:"is_late"`
}

// GradebookResponse summarises a learner's weighted standing in a course.
// WeightedScore is sum(score * weight) / 100 over graded work.
type GradebookResponse struct {
	CourseID      uint            `json:"course_id"`
	LearnerID     uint            `json:"learner_id"`
	WeightedScore float64         `json:"weighted_score"`
	GradedWeight  int             `json:"graded_weight"`
	TotalWeight   int             `json:"total_weight"`
	Items         []GradebookItem `json:"items"`
}

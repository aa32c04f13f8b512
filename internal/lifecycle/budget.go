package lifecycle

import (
	"fmt"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CheckBudget decides whether adding candidate to the existing weights keeps
// the course within WeightCeiling. Reaching the ceiling exactly is allowed.
func CheckBudget(existingWeights []int, candidate int) error {
	total := candidate
	for _, weight := range existingWeights {
		total += weight
	}
	if total > WeightCeiling {
		return &Error{
			Code:    CodeAssignmentWeightExceeded,
			Kind:    KindConflict,
			Field:   "points_weight",
			Message: fmt.Sprintf("total assignment weight would be %d%%, exceeding the %d%% course budget", total, WeightCeiling),
		}
	}
	return nil
}

// SiblingWeights collects the weights of live assignments, skipping excludeID
// (the assignment being updated; 0 for none).
func SiblingWeights(assignments []models.Assignment, excludeID uint) []int {
	weights := make([]int, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.IsDeleted() {
			continue
		}
		if excludeID != 0 && assignment.ID == excludeID {
			continue
		}
		weights = append(weights, assignment.PointsWeight)
	}
	return weights
}

// RemainingBudget reports how much weight is still unallocated in a course.
func RemainingBudget(assignments []models.Assignment) int {
	used := 0
	for _, weight := range SiblingWeights(assignments, 0) {
		used += weight
	}
	if used > WeightCeiling {
		return 0
	}
	return WeightCeiling - used
}

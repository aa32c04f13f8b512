package lifecycle

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

const (
	MaxTitleLength    = 255
	MaxFeedbackLength = 1000
	MinScore          = 0.0
	MaxScore          = 100.0
	// WeightCeiling is the per-course budget expressed in whole percent.
	WeightCeiling = 100
)

// WeightUnit is the unit a caller used to express an assignment weight.
type WeightUnit string

const (
	WeightUnitPercent  WeightUnit = "percent"
	WeightUnitFraction WeightUnit = "fraction"
)

var linkValidator = validator.New()

// ValidateTitle requires a non-empty title of at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return InvalidInput("title", "title is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return InvalidInput("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	return nil
}

// ValidateScore accepts finite scores in [0, 100].
func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < MinScore || score > MaxScore {
		return invalid(CodeInvalidScore, "score", "score must be between 0 and 100")
	}
	return nil
}

// ValidateFeedback requires 1 to MaxFeedbackLength characters of feedback.
func ValidateFeedback(feedback string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(feedback))
	if length == 0 {
		return InvalidInput("feedback", "feedback is required")
	}
	if length > MaxFeedbackLength {
		return InvalidInput("feedback", fmt.Sprintf("feedback must be at most %d characters", MaxFeedbackLength))
	}
	return nil
}

// ValidateSubmissionContent requires non-empty content or a valid absolute
// http(s) link. A supplied link must be valid even when content is present.
func ValidateSubmissionContent(content, link string) error {
	link = strings.TrimSpace(link)
	if link != "" {
		if err := linkValidator.Var(link, "http_url"); err != nil {
			return InvalidInput("link", "link must be an absolute http or https URL")
		}
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return InvalidInput("content", "either content or link is required")
	}
	return nil
}

// ValidateWeight checks a weight already expressed in whole percent.
func ValidateWeight(weight int) error {
	if weight < 0 || weight > WeightCeiling {
		return InvalidInput("points_weight", fmt.Sprintf("points weight must be between 0 and %d", WeightCeiling))
	}
	return nil
}

// NormalizeWeight converts a boundary weight into whole percent. Fractions
// (0.0-1.0) are scaled by 100 and must land on a whole percent.
func NormalizeWeight(value float64, unit WeightUnit) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, InvalidInput("points_weight", "points weight must be a number")
	}

	switch unit {
	case "", WeightUnitPercent:
	case WeightUnitFraction:
		if value < 0 || value > 1 {
			return 0, InvalidInput("points_weight", "fractional weight must be between 0.0 and 1.0")
		}
		value *= 100
	default:
		return 0, InvalidInput("weight_unit", "weight unit must be percent or fraction")
	}

	rounded := math.Round(value)
	if math.Abs(value-rounded) > 1e-6 {
		return 0, InvalidInput("points_weight", "points weight must be a whole percentage")
	}

	weight := int(rounded)
	if err := ValidateWeight(weight); err != nil {
		return 0, err
	}
	return weight, nil
}

// ValidateDueDate requires the deadline to lie strictly after now.
func ValidateDueDate(due, now time.Time) error {
	if due.IsZero() {
		return InvalidInput("due_date", "due date is required")
	}
	if !due.After(now) {
		return invalid(CodeAssignmentPastDeadline, "due_date", "due date must be in the future")
	}
	return nil
}

// ValidateMetadataReference checks that an optional course reference points at
// an active entry of the expected kind. entry is nil when the lookup found nothing.
func ValidateMetadataReference(field string, ref *uint, kind models.MetadataKind, entry *models.CourseMetadata) error {
	if ref == nil {
		return nil
	}
	if entry == nil || entry.ID != *ref || entry.Kind != kind || !entry.Active {
		return invalid(CodeInvalidMetadataReference, field, fmt.Sprintf("%s must reference an active %s", field, kind))
	}
	return nil
}

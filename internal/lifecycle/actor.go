package lifecycle

import (
	"strings"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// Role identifies what an authenticated actor may do.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleLearner    Role = "learner"
	RoleAdmin      Role = "admin"
	// RoleSystem is used by scheduled jobs that act without a user.
	RoleSystem Role = "system"
)

// NormalizeRole maps token roles onto the known set. "teacher" and "student"
// are accepted aliases.
func NormalizeRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "instructor", "teacher":
		return RoleInstructor
	case "learner", "student":
		return RoleLearner
	case "admin", "operator":
		return RoleAdmin
	case "system":
		return RoleSystem
	default:
		return ""
	}
}

// Actor is the authenticated caller behind a request.
type Actor struct {
	ID   uint
	Role Role
}

// SystemActor is the identity used by background jobs.
var SystemActor = Actor{Role: RoleSystem}

// AuthorizeCourseOwner accepts only the instructor that owns the course.
func AuthorizeCourseOwner(actor Actor, course models.Course) error {
	if actor.Role == RoleSystem {
		return nil
	}
	if actor.Role != RoleInstructor || !course.IsOwnedBy(actor.ID) {
		return Forbidden("only the course instructor may modify this course")
	}
	return nil
}

// AuthorizeInstructor accepts any instructor, used for course creation.
func AuthorizeInstructor(actor Actor) error {
	if actor.Role != RoleInstructor || actor.ID == 0 {
		return Forbidden("only instructors may create courses")
	}
	return nil
}

// AuthorizeLearner accepts the learner acting on their own behalf.
func AuthorizeLearner(actor Actor, learnerID uint) error {
	if actor.Role != RoleLearner || actor.ID == 0 || actor.ID != learnerID {
		return Forbidden("learners may only act on their own behalf")
	}
	return nil
}

// AuthorizeEnrolledLearner requires the learner to hold an active enrollment.
func AuthorizeEnrolledLearner(actor Actor, learnerID uint, enrollment *models.Enrollment) error {
	if err := AuthorizeLearner(actor, learnerID); err != nil {
		return err
	}
	if enrollment == nil || !enrollment.IsActive() {
		return Forbidden("learner is not enrolled in this course")
	}
	return nil
}

// AuthorizeOperator accepts platform operators.
func AuthorizeOperator(actor Actor) error {
	if actor.Role != RoleAdmin {
		return Forbidden("only operators may moderate platform metadata")
	}
	return nil
}

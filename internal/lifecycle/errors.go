package lifecycle

import (
	"errors"
	"fmt"
)

// Code is the machine readable reason attached to every rejection.
type Code string

const (
	CodeInvalidInput             Code = "INVALID_INPUT"
	CodeInvalidScore             Code = "INVALID_SCORE"
	CodeInvalidMetadataReference Code = "INVALID_METADATA_REFERENCE"
	CodeInsufficientPermissions  Code = "INSUFFICIENT_PERMISSIONS"

	CodeCourseNotFound     Code = "COURSE_NOT_FOUND"
	CodeAssignmentNotFound Code = "ASSIGNMENT_NOT_FOUND"
	CodeSubmissionNotFound Code = "SUBMISSION_NOT_FOUND"
	CodeEnrollmentNotFound Code = "ENROLLMENT_NOT_FOUND"
	CodeMetadataNotFound   Code = "METADATA_NOT_FOUND"

	CodeInvalidStatusTransition    Code = "INVALID_STATUS_TRANSITION"
	CodeCourseStatusChange         Code = "COURSE_STATUS_CHANGE_ERROR"
	CodeCoursePublishValidation    Code = "COURSE_PUBLISH_VALIDATION_ERROR"
	CodeCourseHasActiveEnrollments Code = "COURSE_HAS_ACTIVE_ENROLLMENTS"
	CodeCourseTitleExists          Code = "COURSE_TITLE_EXISTS"
	CodeCourseNotPublished         Code = "COURSE_NOT_PUBLISHED"
	CodeCourseArchived             Code = "COURSE_ARCHIVED"
	CodeAssignmentWeightExceeded   Code = "ASSIGNMENT_WEIGHT_EXCEEDED"
	CodeAssignmentPastDeadline     Code = "ASSIGNMENT_PAST_DEADLINE"
	CodeAssignmentNotPublished     Code = "ASSIGNMENT_NOT_PUBLISHED"
	CodeAssignmentClosed           Code = "ASSIGNMENT_CLOSED"
	CodeAssignmentHasSubmissions   Code = "ASSIGNMENT_HAS_SUBMISSIONS"
	CodeSubmissionAlreadyGraded    Code = "SUBMISSION_ALREADY_GRADED"
	CodeSubmissionPendingReview    Code = "SUBMISSION_PENDING_REVIEW"
	CodeResubmissionNotAllowed     Code = "RESUBMISSION_NOT_ALLOWED"
	CodeAlreadyEnrolled            Code = "ALREADY_ENROLLED"
	CodeEnrollmentAlreadyCancelled Code = "ENROLLMENT_ALREADY_CANCELLED"
)

// Kind classifies a rejection so transports can pick a status code.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
)

// Error is the typed rejection returned by every lifecycle rule. Message is
// user facing.
type Error struct {
	Code    Code
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches rejections by code so callers can use errors.Is with a template.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// AsError extracts a lifecycle rejection from err.
func AsError(err error) (*Error, bool) {
	var rejection *Error
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// HasCode reports whether err is a rejection carrying code.
func HasCode(err error, code Code) bool {
	rejection, ok := AsError(err)
	return ok && rejection.Code == code
}

func invalid(code Code, field, message string) *Error {
	return &Error{Code: code, Kind: KindValidation, Field: field, Message: message}
}

func conflict(code Code, message string) *Error {
	return &Error{Code: code, Kind: KindConflict, Message: message}
}

// Forbidden builds an INSUFFICIENT_PERMISSIONS rejection.
func Forbidden(message string) *Error {
	if message == "" {
		message = "insufficient permissions"
	}
	return &Error{Code: CodeInsufficientPermissions, Kind: KindPermission, Message: message}
}

// NotFound builds a *_NOT_FOUND rejection.
func NotFound(code Code, message string) *Error {
	return &Error{Code: code, Kind: KindNotFound, Message: message}
}

// InvalidInput builds an INVALID_INPUT rejection for a single field.
func InvalidInput(field, message string) *Error {
	return invalid(CodeInvalidInput, field, message)
}

// Conflict builds a conflict rejection with the given code.
func Conflict(code Code, message string) *Error {
	return conflict(code, message)
}

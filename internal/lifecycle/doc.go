// Package lifecycle holds the course, assignment, submission and enrollment
// state machines. Every function is a pure decision over the entities passed
// in: it returns the next state to persist or a *Error carrying a wire code,
// and never touches storage or the clock.
package lifecycle

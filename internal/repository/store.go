package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repositories groups every repository bound to the same database handle.
type Repositories struct {
	Courses     CourseRepository
	Assignments AssignmentRepository
	Submissions SubmissionRepository
	Enrollments EnrollmentRepository
	Metadata    MetadataRepository
	Activity    ActivityLogRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Courses:     NewCourseRepository(db),
		Assignments: NewAssignmentRepository(db),
		Submissions: NewSubmissionRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Metadata:    NewMetadataRepository(db),
		Activity:    NewActivityLogRepository(db),
	}
}

// Store exposes the repositories and runs multi-step work atomically.
type Store struct {
	Repositories
	db *gorm.DB
}

// NewStore constructs a store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{Repositories: NewRepositories(db), db: db}
}

// Transaction runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// forUpdate adds a row lock on dialects that support it. sqlite serialises
// writers on its own and rejects FOR UPDATE.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

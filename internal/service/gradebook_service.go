package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// GradebookService aggregates a learner's weighted standing in a course.
type GradebookService interface {
	GradebookInvalidator
	Get(ctx context.Context, actor lifecycle.Actor, courseID, learnerID uint) (dto.GradebookResponse, error)
}

type gradebookService struct {
	store    *repository.Store
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewGradebookService builds the gradebook aggregator. cache may be nil.
func NewGradebookService(store *repository.Store, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) GradebookService {
	return &gradebookService{
		store:    store,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "gradebook_service").Logger(),
	}
}

func gradebookCacheKey(courseID, learnerID uint) string {
	return fmt.Sprintf("gradebook:course:%d:learner:%d", courseID, learnerID)
}

func gradebookCoursePattern(courseID uint) string {
	return fmt.Sprintf("gradebook:course:%d:learner:*", courseID)
}

func (s *gradebookService) Get(ctx context.Context, actor lifecycle.Actor, courseID, learnerID uint) (dto.GradebookResponse, error) {
	course, err := s.store.Courses.GetByID(ctx, courseID)
	if err != nil {
		return dto.GradebookResponse{}, notFoundAs(err, lifecycle.CodeCourseNotFound, "course not found")
	}
	if lifecycle.AuthorizeLearner(actor, learnerID) != nil && !canManageCourse(actor, course) {
		return dto.GradebookResponse{}, lifecycle.Forbidden("gradebooks are visible to the learner and the course instructor")
	}

	cacheKey := gradebookCacheKey(courseID, learnerID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.GradebookResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("course_id", courseID).Uint("learner_id", learnerID).Msg("gradebook cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read gradebook cache")
		}
	}

	response, err := s.compute(ctx, courseID, learnerID)
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store gradebook cache")
			}
		}
	}

	return response, nil
}

func (s *gradebookService) compute(ctx context.Context, courseID, learnerID uint) (dto.GradebookResponse, error) {
	assignments, err := s.store.Assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.GradebookResponse{}, err
	}
	submissions, err := s.store.Submissions.List(ctx, repository.SubmissionFilter{CourseID: &courseID, LearnerID: &learnerID})
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	byAssignment := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		byAssignment[submission.AssignmentID] = submission
	}

	response := dto.GradebookResponse{
		CourseID:  courseID,
		LearnerID: learnerID,
		Items:     make([]dto.GradebookItem, 0, len(assignments)),
	}
	var weighted float64
	for _, assignment := range assignments {
		if assignment.Status == models.AssignmentStatusDraft {
			continue
		}
		item := dto.GradebookItem{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			Weight:       assignment.PointsWeight,
			Status:       "missing",
		}
		response.TotalWeight += assignment.PointsWeight

		if submission, ok := byAssignment[assignment.ID]; ok {
			item.Status = string(submission.Status)
			item.IsLate = submission.IsLate
			if submission.Status == models.SubmissionStatusGraded && submission.Score != nil {
				score := *submission.Score
				item.Score = &score
				weighted += score * float64(assignment.PointsWeight)
				response.GradedWeight += assignment.PointsWeight
			}
		}
		response.Items = append(response.Items, item)
	}
	response.WeightedScore = math.Round(weighted/100*100) / 100

	return response, nil
}

// Invalidate drops the cached gradebook; failures only log because the entry
// expires on its own.
func (s *gradebookService) Invalidate(ctx context.Context, courseID, learnerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, gradebookCacheKey(courseID, learnerID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Uint("learner_id", learnerID).Msg("failed to invalidate gradebook cache")
	}
}

// InvalidateCourse drops every cached gradebook of the course. Weight,
// publication and deletion changes reach all learners at once.
func (s *gradebookService) InvalidateCourse(ctx context.Context, courseID uint) {
	if s.cache == nil {
		return
	}

	var keys []string
	iter := s.cache.Scan(ctx, 0, gradebookCoursePattern(courseID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to scan gradebook cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Int("keys", len(keys)).Msg("failed to invalidate course gradebooks")
	}
}

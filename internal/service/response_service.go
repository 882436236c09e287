package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/export"
)

type responseRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentResponse, error)
	ListForStudent(ctx context.Context, assignmentID, studentID string) (map[string]models.StudentResponse, error)
	SubmitBatch(ctx context.Context, assignmentID, studentID string, answers map[string]string) error
	UpsertFeedback(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error)
	ReviewRows(ctx context.Context, assignmentID string) ([]models.ReviewRow, error)
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindPublishedByID(ctx context.Context, id string) (*models.Assignment, error)
	QuestionsByAssignment(ctx context.Context, assignmentID string) ([]models.Question, error)
}

// SubmitResponsesRequest maps question IDs to answer text. Keys that do not
// belong to the assignment are dropped; questions missing from the map keep
// whatever answer they already have.
type SubmitResponsesRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

// SaveFeedbackRequest is one teacher review of one response.
type SaveFeedbackRequest struct {
	Comment string   `json:"comment"`
	Score   *float64 `json:"score"`
}

// ReviewDashboard is the assignment-wide grading view grouped by student.
type ReviewDashboard struct {
	Assignment models.Assignment           `json:"assignment"`
	Students   []models.StudentReviewGroup `json:"students"`
}

// maxScoreMagnitude matches the numeric(5,2) storage column.
const maxScoreMagnitude = 999.99

// ResponseService covers submission by students and review by teachers.
type ResponseService struct {
	repo        responseRepository
	assignments assignmentReader
	classrooms  classroomFinder
	access      classroomAccess
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewResponseService constructs a ResponseService.
func NewResponseService(repo responseRepository, assignments assignmentReader, classrooms classroomFinder, access classroomAccess, validate *validator.Validate, logger *zap.Logger) *ResponseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		repo:        repo,
		assignments: assignments,
		classrooms:  classrooms,
		access:      access,
		validator:   validate,
		logger:      logger,
	}
}

// Submit stores a student's answers for a published assignment. Unknown
// question IDs are silently discarded, answers for known questions replace
// any previous answer, and questions omitted from the request are left as
// they were. The surviving set commits atomically.
func (s *ResponseService) Submit(ctx context.Context, studentID, assignmentID string, req SubmitResponsesRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.assignments.FindPublishedByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	questions, err := s.assignments.QuestionsByAssignment(ctx, assignment.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	answers := make(map[string]string, len(req.Answers))
	for questionID, answer := range req.Answers {
		if _, ok := known[questionID]; !ok {
			s.logger.Debug("dropping answer for unknown question",
				zap.String("assignment_id", assignment.ID),
				zap.String("question_id", questionID))
			continue
		}
		answers[questionID] = answer
	}

	if err := s.repo.SubmitBatch(ctx, assignment.ID, studentID, answers); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save responses")
	}
	return nil
}

// Review writes the singleton feedback row for a response. A second review
// of the same response overwrites its comment and score and makes the
// caller the feedback's teacher of record. Gated on CanManage over the
// response's classroom.
func (s *ResponseService) Review(ctx context.Context, teacherID, responseID string, req SaveFeedbackRequest) (*models.Feedback, error) {
	if req.Score != nil && math.Abs(*req.Score) > maxScoreMagnitude {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between -%.2f and %.2f", maxScoreMagnitude, maxScoreMagnitude))
	}

	response, err := s.repo.FindByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "response not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load response")
	}

	if _, err := s.requireManagedAssignment(ctx, teacherID, response.AssignmentID); err != nil {
		return nil, err
	}

	feedback, err := s.repo.UpsertFeedback(ctx, &models.Feedback{
		ResponseID: response.ID,
		TeacherID:  teacherID,
		Comment:    req.Comment,
		Score:      req.Score,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback")
	}
	return feedback, nil
}

// Dashboard assembles the grading view for an assignment: every submitted
// response joined with its question and feedback status, grouped per
// student. Gated on CanManage.
func (s *ResponseService) Dashboard(ctx context.Context, teacherID, assignmentID string) (*ReviewDashboard, error) {
	assignment, err := s.requireManagedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ReviewRows(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review rows")
	}

	dashboard := &ReviewDashboard{Assignment: *assignment, Students: groupByStudent(rows)}
	return dashboard, nil
}

// ExportCSV renders the grading dashboard as a CSV dataset for download.
func (s *ResponseService) ExportCSV(ctx context.Context, teacherID, assignmentID string) (*export.Dataset, error) {
	dashboard, err := s.Dashboard(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}

	dataset := &export.Dataset{
		Headers: []string{"Student", "Question", "Answer", "Submitted At", "Feedback", "Score"},
	}
	for _, group := range dashboard.Students {
		for _, row := range group.Rows {
			comment := ""
			if row.FeedbackComment != nil {
				comment = *row.FeedbackComment
			}
			score := ""
			if row.FeedbackScore != nil {
				score = fmt.Sprintf("%.2f", *row.FeedbackScore)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student":      group.StudentUsername,
				"Question":     row.QuestionPrompt,
				"Answer":       row.Answer,
				"Submitted At": row.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
				"Feedback":     comment,
				"Score":        score,
			})
		}
	}
	return dataset, nil
}

func (s *ResponseService) requireManagedAssignment(ctx context.Context, userID, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	classroom, err := s.classrooms.FindByID(ctx, assignment.ClassroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	allowed, err := s.access.CanManage(ctx, userID, classroom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom access")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}
	return assignment, nil
}

func groupByStudent(rows []models.ReviewRow) []models.StudentReviewGroup {
	groups := make([]models.StudentReviewGroup, 0)
	for _, row := range rows {
		if n := len(groups); n == 0 || groups[n-1].StudentID != row.StudentID {
			groups = append(groups, models.StudentReviewGroup{
				StudentID:       row.StudentID,
				StudentUsername: row.StudentUsername,
			})
		}
		groups[len(groups)-1].Rows = append(groups[len(groups)-1].Rows, row)
	}
	return groups
}

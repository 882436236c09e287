package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindPublishedByID(ctx context.Context, id string) (*models.Assignment, error)
	QuestionsByAssignment(ctx context.Context, assignmentID string) ([]models.Question, error)
	Save(ctx context.Context, assignment *models.Assignment, questions []models.QuestionInput) error
}

type classroomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type classroomAccess interface {
	CanManage(ctx context.Context, userID string, classroom *models.Classroom) (bool, error)
}

type responseReader interface {
	ListForStudent(ctx context.Context, assignmentID, studentID string) (map[string]models.StudentResponse, error)
}

// SaveAssignmentRequest carries an assignment's scalar fields plus the full
// replacement question set.
type SaveAssignmentRequest struct {
	Title        string                 `json:"title" validate:"required,max=200"`
	ArticleID    *string                `json:"article_id"`
	Instructions string                 `json:"instructions"`
	Link         string                 `json:"link" validate:"omitempty,url"`
	DueAt        *time.Time             `json:"due_at"`
	Published    bool                   `json:"published"`
	Questions    []models.QuestionInput `json:"questions" validate:"dive"`
}

// StudentAssignmentView is the student's answer sheet: the published
// assignment, its questions in display order, and the student's previous
// answers keyed by question ID (blank when never submitted).
type StudentAssignmentView struct {
	Assignment models.Assignment `json:"assignment"`
	Questions  []models.Question `json:"questions"`
	Answers    map[string]string `json:"answers"`
}

// AssignmentService orchestrates assignment and question management.
type AssignmentService struct {
	repo       assignmentRepository
	classrooms classroomFinder
	access     classroomAccess
	responses  responseReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, classrooms classroomFinder, access classroomAccess, responses responseReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:       repo,
		classrooms: classrooms,
		access:     access,
		responses:  responses,
		validator:  validate,
		logger:     logger,
	}
}

// Create adds an assignment with its question set to a classroom. Gated on
// CanManage over the classroom.
func (s *AssignmentService) Create(ctx context.Context, userID, classroomID string, req SaveAssignmentRequest) (*models.AssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	classroom, err := s.requireClassroom(ctx, userID, classroomID)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ClassroomID:  classroom.ID,
		ArticleID:    req.ArticleID,
		Title:        strings.TrimSpace(req.Title),
		Instructions: req.Instructions,
		Link:         req.Link,
		DueAt:        req.DueAt,
		Published:    req.Published,
	}
	return s.save(ctx, assignment, req.Questions)
}

// Update rewrites an assignment's scalar fields and replaces its question
// set atomically. Questions dropped from the set are deleted and their
// responses and feedback cascade away. Gated on CanManage.
func (s *AssignmentService) Update(ctx context.Context, userID, assignmentID string, req SaveAssignmentRequest) (*models.AssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, err := s.requireManagedAssignment(ctx, userID, assignmentID)
	if err != nil {
		return nil, err
	}

	assignment.ArticleID = req.ArticleID
	assignment.Title = strings.TrimSpace(req.Title)
	assignment.Instructions = req.Instructions
	assignment.Link = req.Link
	assignment.DueAt = req.DueAt
	assignment.Published = req.Published
	return s.save(ctx, assignment, req.Questions)
}

// TeacherDetail returns an assignment with its question set regardless of
// the published flag. Gated on CanManage.
func (s *AssignmentService) TeacherDetail(ctx context.Context, userID, assignmentID string) (*models.AssignmentDetail, error) {
	assignment, err := s.requireManagedAssignment(ctx, userID, assignmentID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.QuestionsByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	return &models.AssignmentDetail{Assignment: *assignment, Questions: questions}, nil
}

// StudentView returns the published assignment with the student's previous
// answers pre-filled. An unpublished assignment is reported as not found, so
// students cannot distinguish it from a nonexistent one.
func (s *AssignmentService) StudentView(ctx context.Context, studentID, assignmentID string) (*StudentAssignmentView, error) {
	assignment, err := s.repo.FindPublishedByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	questions, err := s.repo.QuestionsByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}

	existing, err := s.responses.ListForStudent(ctx, assignment.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}

	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		if resp, ok := existing[q.ID]; ok {
			answers[q.ID] = resp.Answer
		} else {
			answers[q.ID] = ""
		}
	}

	return &StudentAssignmentView{Assignment: *assignment, Questions: questions, Answers: answers}, nil
}

func (s *AssignmentService) save(ctx context.Context, assignment *models.Assignment, questions []models.QuestionInput) (*models.AssignmentDetail, error) {
	if err := s.repo.Save(ctx, assignment, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save assignment")
	}
	stored, err := s.repo.QuestionsByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	return &models.AssignmentDetail{Assignment: *assignment, Questions: stored}, nil
}

func (s *AssignmentService) requireClassroom(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	allowed, err := s.access.CanManage(ctx, userID, classroom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom access")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}
	return classroom, nil
}

func (s *AssignmentService) requireManagedAssignment(ctx context.Context, userID, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if _, err := s.requireClassroom(ctx, userID, assignment.ClassroomID); err != nil {
		return nil, err
	}
	return assignment, nil
}

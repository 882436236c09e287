package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	"github.com/annelaughry/FFYM/internal/repository"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type classroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateWithOwner(ctx context.Context, classroom *models.Classroom) error
	GetOrCreateMembership(ctx context.Context, userID, classroomID string, role models.MembershipRole) (*models.Membership, error)
	HasTeacherMembership(ctx context.Context, userID, classroomID string) (bool, error)
	IsUserTeacher(ctx context.Context, userID string) (bool, error)
	ListOwned(ctx context.Context, userID string) ([]models.Classroom, error)
	ListTeaching(ctx context.Context, userID string) ([]models.Classroom, error)
	Roster(ctx context.Context, classroomID string) ([]models.RosterEntry, error)
	AssignmentSummaries(ctx context.Context, classroomID string) ([]models.AssignmentSummary, error)
}

// CreateClassroomRequest is the payload for creating a classroom. A blank
// code requests a generated one.
type CreateClassroomRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"omitempty,max=12"`
}

// JoinClassroomRequest carries the join code submitted by a student.
type JoinClassroomRequest struct {
	Code string `json:"code" validate:"required"`
}

// TeacherClassroomView is the teacher's classroom page: roster plus
// assignments with distinct submitter counts.
type TeacherClassroomView struct {
	Classroom     models.Classroom           `json:"classroom"`
	Students      []models.RosterEntry       `json:"students"`
	TotalStudents int                        `json:"total_students"`
	Assignments   []models.AssignmentSummary `json:"assignments"`
}

// MyClassrooms partitions a teacher's classrooms into owned and teaching.
type MyClassrooms struct {
	Owned    []models.Classroom `json:"owned"`
	Teaching []models.Classroom `json:"teaching"`
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ClassroomService orchestrates classroom and membership operations and
// hosts the classroom-scoped access predicates.
type ClassroomService struct {
	repo       classroomRepository
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	codeLength int
	codeGen    func(n int) string
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, codeLength int) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codeLength <= 0 {
		codeLength = 6
	}
	return &ClassroomService{
		repo:       repo,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		codeLength: codeLength,
		codeGen:    randomCode,
	}
}

// IsTeacher reports whether the user holds a teacher membership in the
// classroom.
func (s *ClassroomService) IsTeacher(ctx context.Context, userID, classroomID string) (bool, error) {
	return s.repo.HasTeacherMembership(ctx, userID, classroomID)
}

// IsOwner reports whether the user owns the classroom.
func (s *ClassroomService) IsOwner(user string, classroom *models.Classroom) bool {
	return classroom != nil && classroom.OwnerID == user
}

// CanManage reports whether the user may operate the classroom's teacher
// surface: teacher membership or ownership suffices.
func (s *ClassroomService) CanManage(ctx context.Context, userID string, classroom *models.Classroom) (bool, error) {
	if s.IsOwner(userID, classroom) {
		return true, nil
	}
	return s.repo.HasTeacherMembership(ctx, userID, classroom.ID)
}

// IsUserTeacher reports whether the user is a teacher anywhere: owns a
// classroom or holds a teacher membership. Derived from data on every call.
func (s *ClassroomService) IsUserTeacher(ctx context.Context, userID string) (bool, error) {
	return s.repo.IsUserTeacher(ctx, userID)
}

// Create persists a new classroom owned by the requester. A blank code is
// replaced by a generated one, re-drawn until it does not collide with any
// existing classroom code.
func (s *ClassroomService) Create(ctx context.Context, ownerID string, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		generated, err := s.generateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	classroom := &models.Classroom{
		Name:    strings.TrimSpace(req.Name),
		Code:    code,
		OwnerID: ownerID,
	}
	if err := s.repo.CreateWithOwner(ctx, classroom); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "classroom code already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// ProvisionDefault creates the default classroom a teacher receives at
// registration.
func (s *ClassroomService) ProvisionDefault(ctx context.Context, ownerID, username string) (*models.Classroom, error) {
	return s.Create(ctx, ownerID, CreateClassroomRequest{Name: fmt.Sprintf("%s's Classroom", username)})
}

// Join enrolls the user as a student in the classroom matching the code.
// The operation is idempotent: re-joining keeps the existing membership and
// never downgrades a teacher role.
func (s *ClassroomService) Join(ctx context.Context, userID string, req JoinClassroomRequest) (*models.Membership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	classroom, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up classroom")
	}

	membership, err := s.repo.GetOrCreateMembership(ctx, userID, classroom.ID, models.MembershipStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join classroom")
	}

	if err := s.cache.Invalidate(ctx, dashboardCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}

	return membership, nil
}

// My returns the classrooms the user owns or teaches. Gated on
// IsUserTeacher.
func (s *ClassroomService) My(ctx context.Context, userID string) (*MyClassrooms, error) {
	isTeacher, err := s.repo.IsUserTeacher(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher status")
	}
	if !isTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}

	owned, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list owned classrooms")
	}
	teaching, err := s.repo.ListTeaching(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching classrooms")
	}
	return &MyClassrooms{Owned: owned, Teaching: teaching}, nil
}

// TeacherView returns the roster and assignment summaries for a classroom.
// Gated on CanManage.
func (s *ClassroomService) TeacherView(ctx context.Context, userID, classroomID string) (*TeacherClassroomView, error) {
	classroom, err := s.requireManaged(ctx, userID, classroomID)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.Roster(ctx, classroom.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	assignments, err := s.repo.AssignmentSummaries(ctx, classroom.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	return &TeacherClassroomView{
		Classroom:     *classroom,
		Students:      students,
		TotalStudents: len(students),
		Assignments:   assignments,
	}, nil
}

func (s *ClassroomService) requireManaged(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	allowed, err := s.CanManage(ctx, userID, classroom)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom access")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}
	return classroom, nil
}

func (s *ClassroomService) generateUniqueCode(ctx context.Context) (string, error) {
	for {
		code := s.codeGen(s.codeLength)
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check code uniqueness")
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(0)
		}
		sb.WriteByte(codeAlphabet[idx.Int64()])
	}
	return sb.String()
}

func dashboardCacheKey(userID string) string {
	return "dashboard:user:" + userID
}

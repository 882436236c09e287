package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type articleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context) ([]models.Article, error)
}

type teacherChecker interface {
	IsUserTeacher(ctx context.Context, userID string) (bool, error)
}

// CreateArticleRequest adds a reading to the shared article pool.
type CreateArticleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	URL   string `json:"url" validate:"omitempty,url"`
	Body  string `json:"body"`
}

// ArticleService manages the shared pool of readings assignments can
// reference.
type ArticleService struct {
	repo      articleRepository
	teachers  teacherChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewArticleService constructs an ArticleService.
func NewArticleService(repo articleRepository, teachers teacherChecker, validate *validator.Validate, logger *zap.Logger) *ArticleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// Create adds an article. Restricted to users who teach somewhere.
func (s *ArticleService) Create(ctx context.Context, userID string, req CreateArticleRequest) (*models.Article, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}

	isTeacher, err := s.teachers.IsUserTeacher(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher status")
	}
	if !isTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}

	article := &models.Article{
		Title: strings.TrimSpace(req.Title),
		URL:   req.URL,
		Body:  req.Body,
	}
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create article")
	}
	return article, nil
}

// Get fetches one article.
func (s *ArticleService) Get(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load article")
	}
	return article, nil
}

// List returns the article pool ordered by title.
func (s *ArticleService) List(ctx context.Context) ([]models.Article, error) {
	articles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
	}
	return articles, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/annelaughry/FFYM/internal/models"
)

// ArticleRepository manages persistence for reading articles.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository constructs an ArticleRepository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new article.
func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO articles (id, title, url, body, created_at)
		VALUES (:id, :title, :url, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, article); err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// FindByID fetches an article by ID.
func (r *ArticleRepository) FindByID(ctx context.Context, id string) (*models.Article, error) {
	const query = `SELECT id, title, url, body, created_at FROM articles WHERE id = $1`
	var article models.Article
	if err := r.db.GetContext(ctx, &article, query, id); err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns all articles ordered by title.
func (r *ArticleRepository) List(ctx context.Context) ([]models.Article, error) {
	const query = `SELECT id, title, url, body, created_at FROM articles ORDER BY title`
	var articles []models.Article
	if err := r.db.SelectContext(ctx, &articles, query); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/annelaughry/FFYM/internal/models"
)

// AssignmentRepository manages persistence for assignments and their
// question sets.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID fetches an assignment regardless of its published flag.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, classroom_id, article_id, title, instructions, link, due_at, published, created_at, updated_at
		FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindPublishedByID fetches an assignment only when it is published. An
// unpublished assignment yields sql.ErrNoRows, indistinguishable from a
// nonexistent one.
func (r *AssignmentRepository) FindPublishedByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, classroom_id, article_id, title, instructions, link, due_at, published, created_at, updated_at
		FROM assignments WHERE id = $1 AND published = TRUE`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// QuestionsByAssignment returns the live question set in (ord, id) order.
func (r *AssignmentRepository) QuestionsByAssignment(ctx context.Context, assignmentID string) ([]models.Question, error) {
	const query = `SELECT id, assignment_id, prompt, ord FROM questions WHERE assignment_id = $1 ORDER BY ord, id`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("questions by assignment: %w", err)
	}
	return questions, nil
}

// Save writes the assignment's scalar fields plus the full replacement
// question set in one transaction. Questions with known IDs are updated, new
// ones inserted, and live questions missing from the set deleted. Deleting a
// question cascades to its responses and feedback at the storage layer.
func (r *AssignmentRepository) Save(ctx context.Context, assignment *models.Assignment, questions []models.QuestionInput) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save assignment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO assignments (id, classroom_id, article_id, title, instructions, link, due_at, published, created_at, updated_at)
		VALUES (:id, :classroom_id, :article_id, :title, :instructions, :link, :due_at, :published, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			article_id = EXCLUDED.article_id,
			title = EXCLUDED.title,
			instructions = EXCLUDED.instructions,
			link = EXCLUDED.link,
			due_at = EXCLUDED.due_at,
			published = EXCLUDED.published,
			updated_at = EXCLUDED.updated_at`, assignment); err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}

	kept := make([]string, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
			if _, err = tx.ExecContext(ctx, `INSERT INTO questions (id, assignment_id, prompt, ord) VALUES ($1, $2, $3, $4)`,
				q.ID, assignment.ID, q.Prompt, q.Ord); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
		} else {
			if _, err = tx.ExecContext(ctx, `UPDATE questions SET prompt = $3, ord = $4 WHERE id = $1 AND assignment_id = $2`,
				q.ID, assignment.ID, q.Prompt, q.Ord); err != nil {
				return fmt.Errorf("update question: %w", err)
			}
		}
		kept = append(kept, q.ID)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE assignment_id = $1 AND id <> ALL($2)`,
		assignment.ID, pq.Array(kept)); err != nil {
		return fmt.Errorf("delete removed questions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save assignment tx: %w", err)
	}
	return nil
}

// ListUpcoming returns published assignments in the given classrooms that
// are due within the window ending at horizon, or carry no due date at all,
// ordered by due date then title.
func (r *AssignmentRepository) ListUpcoming(ctx context.Context, classroomIDs []string, horizon time.Time) ([]models.UpcomingAssignment, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT a.id, a.classroom_id, c.name AS classroom_name, a.title, a.due_at
		FROM assignments a
		JOIN classrooms c ON c.id = a.classroom_id
		WHERE a.classroom_id = ANY($1) AND a.published = TRUE
			AND (a.due_at IS NULL OR a.due_at <= $2)
		ORDER BY a.due_at NULLS LAST, a.title`
	var upcoming []models.UpcomingAssignment
	if err := r.db.SelectContext(ctx, &upcoming, query, pq.Array(classroomIDs), horizon); err != nil {
		return nil, fmt.Errorf("list upcoming assignments: %w", err)
	}
	return upcoming, nil
}

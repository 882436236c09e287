package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/annelaughry/FFYM/internal/models"
)

// ResponseRepository manages the response ledger and its feedback layer.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository constructs a ResponseRepository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// FindByID fetches a single response.
func (r *ResponseRepository) FindByID(ctx context.Context, id string) (*models.StudentResponse, error) {
	const query = `SELECT id, assignment_id, question_id, student_id, answer, submitted_at
		FROM student_responses WHERE id = $1`
	var response models.StudentResponse
	if err := r.db.GetContext(ctx, &response, query, id); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListForStudent returns the student's responses for an assignment keyed by
// question ID, used to pre-fill answer fields.
func (r *ResponseRepository) ListForStudent(ctx context.Context, assignmentID, studentID string) (map[string]models.StudentResponse, error) {
	const query = `SELECT id, assignment_id, question_id, student_id, answer, submitted_at
		FROM student_responses WHERE assignment_id = $1 AND student_id = $2`
	var responses []models.StudentResponse
	if err := r.db.SelectContext(ctx, &responses, query, assignmentID, studentID); err != nil {
		return nil, fmt.Errorf("list responses for student: %w", err)
	}
	byQuestion := make(map[string]models.StudentResponse, len(responses))
	for _, resp := range responses {
		byQuestion[resp.QuestionID] = resp
	}
	return byQuestion, nil
}

// SubmitBatch upserts the student's answers for the given questions in one
// transaction: either every pair commits or none do. The unique
// (assignment_id, question_id, student_id) constraint caps each triple at
// one row; overwrites replace the answer but keep the original submitted_at.
func (r *ResponseRepository) SubmitBatch(ctx context.Context, assignmentID, studentID string, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO student_responses (id, assignment_id, question_id, student_id, answer, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (assignment_id, question_id, student_id) DO UPDATE SET answer = EXCLUDED.answer`
	now := time.Now().UTC()
	for questionID, answer := range answers {
		if _, err = tx.ExecContext(ctx, query, uuid.NewString(), assignmentID, questionID, studentID, answer, now); err != nil {
			return fmt.Errorf("upsert response: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}
	return nil
}

// UpsertFeedback writes the singleton feedback row for a response. The first
// review creates it; later reviews overwrite comment and score, bump
// updated_at, and reassign teacher_id to the latest reviewer. Returns the
// stored row.
func (r *ResponseRepository) UpsertFeedback(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now

	const query = `INSERT INTO feedback (id, response_id, teacher_id, comment, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (response_id) DO UPDATE SET
			teacher_id = EXCLUDED.teacher_id,
			comment = EXCLUDED.comment,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
		RETURNING id, response_id, teacher_id, comment, score, created_at, updated_at`
	var stored models.Feedback
	if err := r.db.GetContext(ctx, &stored, query,
		feedback.ID, feedback.ResponseID, feedback.TeacherID, feedback.Comment, feedback.Score, feedback.CreatedAt, feedback.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert feedback: %w", err)
	}
	return &stored, nil
}

// ReviewRows returns the assignment-wide grading dashboard rows ordered by
// student username then question ord.
func (r *ResponseRepository) ReviewRows(ctx context.Context, assignmentID string) ([]models.ReviewRow, error) {
	const query = `SELECT sr.id AS response_id, sr.student_id, u.username AS student_username,
		q.id AS question_id, q.prompt AS question_prompt, q.ord AS question_ord,
		sr.answer, sr.submitted_at,
		f.comment AS feedback_comment, f.score AS feedback_score, f.updated_at AS feedback_at
		FROM student_responses sr
		JOIN users u ON u.id = sr.student_id
		JOIN questions q ON q.id = sr.question_id
		LEFT JOIN feedback f ON f.response_id = sr.id
		WHERE sr.assignment_id = $1
		ORDER BY u.username, q.ord, q.id`
	var rows []models.ReviewRow
	if err := r.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, fmt.Errorf("review rows: %w", err)
	}
	return rows, nil
}

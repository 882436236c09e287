package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/annelaughry/FFYM/internal/models"
)

// ClassroomRepository manages persistence for classrooms and memberships.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID fetches a classroom by ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, code, owner_id, created_at, updated_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// FindByCode fetches a classroom by its join code. The match is exact and
// case-sensitive.
func (r *ClassroomRepository) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	const query = `SELECT id, name, code, owner_id, created_at, updated_at FROM classrooms WHERE code = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, code); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// CodeExists checks whether a join code is already assigned.
func (r *ClassroomRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM classrooms WHERE code = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom code: %w", err)
	}
	return true, nil
}

// CreateWithOwner inserts a classroom together with the owner's teacher
// membership in one transaction. The membership insert is idempotent so an
// owner who already holds a membership keeps it unchanged.
func (r *ClassroomRepository) CreateWithOwner(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create classroom tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO classrooms (id, name, code, owner_id, created_at, updated_at)
		VALUES (:id, :name, :code, :owner_id, :created_at, :updated_at)`, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO memberships (id, user_id, classroom_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, classroom_id) DO NOTHING`,
		uuid.NewString(), classroom.OwnerID, classroom.ID, models.MembershipTeacher, now); err != nil {
		return fmt.Errorf("create owner membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create classroom tx: %w", err)
	}
	return nil
}

// GetOrCreateMembership joins a user to a classroom with the given role.
// Re-joining is a no-op: the unique (user_id, classroom_id) constraint plus
// ON CONFLICT DO NOTHING guarantees an existing membership, including a
// teacher one, is never overwritten.
func (r *ClassroomRepository) GetOrCreateMembership(ctx context.Context, userID, classroomID string, role models.MembershipRole) (*models.Membership, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO memberships (id, user_id, classroom_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, classroom_id) DO NOTHING`,
		uuid.NewString(), userID, classroomID, role, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}

	const query = `SELECT id, user_id, classroom_id, role, created_at FROM memberships WHERE user_id = $1 AND classroom_id = $2`
	var membership models.Membership
	if err := r.db.GetContext(ctx, &membership, query, userID, classroomID); err != nil {
		return nil, fmt.Errorf("fetch membership: %w", err)
	}
	return &membership, nil
}

// HasTeacherMembership reports whether the user holds a teacher membership
// in the given classroom.
func (r *ClassroomRepository) HasTeacherMembership(ctx context.Context, userID, classroomID string) (bool, error) {
	const query = `SELECT 1 FROM memberships WHERE user_id = $1 AND classroom_id = $2 AND role = 'teacher' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, classroomID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher membership: %w", err)
	}
	return true, nil
}

// IsUserTeacher reports whether the user owns any classroom or holds any
// teacher membership. Recomputed from data on every call, never cached.
func (r *ClassroomRepository) IsUserTeacher(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM classrooms WHERE owner_id = $1)
		OR EXISTS(SELECT 1 FROM memberships WHERE user_id = $1 AND role = 'teacher')`
	var isTeacher bool
	if err := r.db.GetContext(ctx, &isTeacher, query, userID); err != nil {
		return false, fmt.Errorf("check user teacher: %w", err)
	}
	return isTeacher, nil
}

// ListOwned returns classrooms owned by the user.
func (r *ClassroomRepository) ListOwned(ctx context.Context, userID string) ([]models.Classroom, error) {
	const query = `SELECT id, name, code, owner_id, created_at, updated_at FROM classrooms WHERE owner_id = $1 ORDER BY name`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, userID); err != nil {
		return nil, fmt.Errorf("list owned classrooms: %w", err)
	}
	return classrooms, nil
}

// ListTeaching returns classrooms where the user holds a teacher membership
// but is not the owner.
func (r *ClassroomRepository) ListTeaching(ctx context.Context, userID string) ([]models.Classroom, error) {
	const query = `SELECT c.id, c.name, c.code, c.owner_id, c.created_at, c.updated_at
		FROM classrooms c
		JOIN memberships m ON m.classroom_id = c.id
		WHERE m.user_id = $1 AND m.role = 'teacher' AND c.owner_id <> $1
		ORDER BY c.name`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, userID); err != nil {
		return nil, fmt.Errorf("list teaching classrooms: %w", err)
	}
	return classrooms, nil
}

// ListByMember returns every classroom the user belongs to, with the user's
// role in each.
func (r *ClassroomRepository) ListByMember(ctx context.Context, userID string) ([]models.Classroom, []models.MembershipRole, error) {
	const query = `SELECT c.id, c.name, c.code, c.owner_id, c.created_at, c.updated_at, m.role
		FROM classrooms c
		JOIN memberships m ON m.classroom_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.name`
	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list member classrooms: %w", err)
	}
	defer rows.Close()

	var classrooms []models.Classroom
	var roles []models.MembershipRole
	for rows.Next() {
		var c models.Classroom
		var role models.MembershipRole
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt, &role); err != nil {
			return nil, nil, fmt.Errorf("scan member classroom: %w", err)
		}
		classrooms = append(classrooms, c)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate member classrooms: %w", err)
	}
	return classrooms, roles, nil
}

// Roster returns the students enrolled in a classroom ordered by username.
func (r *ClassroomRepository) Roster(ctx context.Context, classroomID string) ([]models.RosterEntry, error) {
	const query = `SELECT u.id AS user_id, u.username, u.email, m.created_at::text AS joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.classroom_id = $1 AND m.role = 'student'
		ORDER BY u.username`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classroomID); err != nil {
		return nil, fmt.Errorf("classroom roster: %w", err)
	}
	return roster, nil
}

// AssignmentSummaries returns the classroom's assignments annotated with the
// number of distinct students who submitted, newest due date first.
func (r *ClassroomRepository) AssignmentSummaries(ctx context.Context, classroomID string) ([]models.AssignmentSummary, error) {
	const query = `SELECT a.id, a.title, a.due_at, a.published,
		COUNT(DISTINCT sr.student_id) AS submitters
		FROM assignments a
		LEFT JOIN student_responses sr ON sr.assignment_id = a.id
		WHERE a.classroom_id = $1
		GROUP BY a.id, a.title, a.due_at, a.published
		ORDER BY a.due_at DESC NULLS LAST, a.title`
	var summaries []models.AssignmentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, classroomID); err != nil {
		return nil, fmt.Errorf("assignment summaries: %w", err)
	}
	return summaries, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/annelaughry/FFYM/internal/models"
)

// PlannerRepository manages projects, group members and the three stage
// singletons of the research planner.
type PlannerRepository struct {
	db *sqlx.DB
}

// NewPlannerRepository constructs a PlannerRepository.
func NewPlannerRepository(db *sqlx.DB) *PlannerRepository {
	return &PlannerRepository{db: db}
}

// FindActiveProject returns the owner's active project, or sql.ErrNoRows
// when none exists.
func (r *PlannerRepository) FindActiveProject(ctx context.Context, ownerID string) (*models.Project, error) {
	const query = `SELECT id, owner_id, title, is_active, created_at, updated_at
		FROM projects WHERE owner_id = $1 AND is_active = TRUE LIMIT 1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, ownerID); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetOrCreateActiveProject returns the owner's active project, inserting one
// with the given title first when none exists. The insert relies on the
// partial unique index on projects(owner_id) WHERE is_active, so a concurrent
// creator wins and both callers read the same row back.
func (r *PlannerRepository) GetOrCreateActiveProject(ctx context.Context, ownerID, title string) (*models.Project, error) {
	const insert = `INSERT INTO projects (id, owner_id, title, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (owner_id) WHERE is_active DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), ownerID, title, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert active project: %w", err)
	}
	return r.FindActiveProject(ctx, ownerID)
}

// FindByID fetches a project by ID.
func (r *PlannerRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT id, owner_id, title, is_active, created_at, updated_at FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// StartProject deactivates every active project of the owner, then creates
// the new active project and its group members, all in one transaction.
func (r *PlannerRepository) StartProject(ctx context.Context, project *models.Project, members []models.GroupMember) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.IsActive = true
	project.CreatedAt = now
	project.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin start project tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE projects SET is_active = FALSE, updated_at = $2 WHERE owner_id = $1 AND is_active = TRUE`,
		project.OwnerID, now); err != nil {
		return fmt.Errorf("deactivate projects: %w", err)
	}

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO projects (id, owner_id, title, is_active, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :is_active, :created_at, :updated_at)`, project); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	for i := range members {
		member := &members[i]
		if member.ID == "" {
			member.ID = uuid.NewString()
		}
		member.ProjectID = project.ID
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (id, project_id, name, email) VALUES ($1, $2, $3, $4)`,
			member.ID, member.ProjectID, member.Name, member.Email); err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit start project tx: %w", err)
	}
	return nil
}

// MembersByProject returns a project's group members.
func (r *PlannerRepository) MembersByProject(ctx context.Context, projectID string) ([]models.GroupMember, error) {
	const query = `SELECT id, project_id, name, email FROM group_members WHERE project_id = $1 ORDER BY name`
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("members by project: %w", err)
	}
	return members, nil
}

// GetOrCreateBackgroundResearch lazily creates the stage singleton for the
// project. The unique project_id constraint closes the check-then-create
// race: a concurrent insert loses the conflict and both callers read the
// same row.
func (r *PlannerRepository) GetOrCreateBackgroundResearch(ctx context.Context, projectID string) (*models.BackgroundResearch, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO background_research (id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3) ON CONFLICT (project_id) DO NOTHING`,
		uuid.NewString(), projectID, now); err != nil {
		return nil, fmt.Errorf("create background research: %w", err)
	}

	const query = `SELECT id, project_id, topic, big_picture, prior_findings, key_terms, term_definitions, current_events, real_world, sources, created_at, updated_at
		FROM background_research WHERE project_id = $1`
	var section models.BackgroundResearch
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, fmt.Errorf("fetch background research: %w", err)
	}
	return &section, nil
}

// UpdateBackgroundResearch overwrites all stage fields in place.
func (r *PlannerRepository) UpdateBackgroundResearch(ctx context.Context, section *models.BackgroundResearch) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE background_research SET topic = :topic, big_picture = :big_picture, prior_findings = :prior_findings,
		key_terms = :key_terms, term_definitions = :term_definitions, current_events = :current_events,
		real_world = :real_world, sources = :sources, updated_at = :updated_at
		WHERE project_id = :project_id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update background research: %w", err)
	}
	return nil
}

// FindBackgroundResearch returns the stage row if the project ever visited
// it, or sql.ErrNoRows.
func (r *PlannerRepository) FindBackgroundResearch(ctx context.Context, projectID string) (*models.BackgroundResearch, error) {
	const query = `SELECT id, project_id, topic, big_picture, prior_findings, key_terms, term_definitions, current_events, real_world, sources, created_at, updated_at
		FROM background_research WHERE project_id = $1`
	var section models.BackgroundResearch
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetOrCreateResearchQuestions lazily creates the second stage singleton.
func (r *PlannerRepository) GetOrCreateResearchQuestions(ctx context.Context, projectID string) (*models.ResearchQuestions, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO research_questions (id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3) ON CONFLICT (project_id) DO NOTHING`,
		uuid.NewString(), projectID, now); err != nil {
		return nil, fmt.Errorf("create research questions: %w", err)
	}

	const query = `SELECT id, project_id, problem_statement, question_brainstorm, so_what, evaluate, final_question, created_at, updated_at
		FROM research_questions WHERE project_id = $1`
	var section models.ResearchQuestions
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, fmt.Errorf("fetch research questions: %w", err)
	}
	return &section, nil
}

// UpdateResearchQuestions overwrites all stage fields in place.
func (r *PlannerRepository) UpdateResearchQuestions(ctx context.Context, section *models.ResearchQuestions) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE research_questions SET problem_statement = :problem_statement, question_brainstorm = :question_brainstorm,
		so_what = :so_what, evaluate = :evaluate, final_question = :final_question, updated_at = :updated_at
		WHERE project_id = :project_id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update research questions: %w", err)
	}
	return nil
}

// FindResearchQuestions returns the stage row or sql.ErrNoRows.
func (r *PlannerRepository) FindResearchQuestions(ctx context.Context, projectID string) (*models.ResearchQuestions, error) {
	const query = `SELECT id, project_id, problem_statement, question_brainstorm, so_what, evaluate, final_question, created_at, updated_at
		FROM research_questions WHERE project_id = $1`
	var section models.ResearchQuestions
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetOrCreateHypothesis lazily creates the third stage singleton.
func (r *PlannerRepository) GetOrCreateHypothesis(ctx context.Context, projectID string) (*models.Hypothesis, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO hypotheses (id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3) ON CONFLICT (project_id) DO NOTHING`,
		uuid.NewString(), projectID, now); err != nil {
		return nil, fmt.Errorf("create hypothesis: %w", err)
	}

	const query = `SELECT id, project_id, hypothesis, independent_variable, dependent_variable, created_at, updated_at
		FROM hypotheses WHERE project_id = $1`
	var section models.Hypothesis
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, fmt.Errorf("fetch hypothesis: %w", err)
	}
	return &section, nil
}

// UpdateHypothesis overwrites all stage fields in place.
func (r *PlannerRepository) UpdateHypothesis(ctx context.Context, section *models.Hypothesis) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE hypotheses SET hypothesis = :hypothesis, independent_variable = :independent_variable,
		dependent_variable = :dependent_variable, updated_at = :updated_at
		WHERE project_id = :project_id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update hypothesis: %w", err)
	}
	return nil
}

// FindHypothesis returns the stage row or sql.ErrNoRows.
func (r *PlannerRepository) FindHypothesis(ctx context.Context, projectID string) (*models.Hypothesis, error) {
	const query = `SELECT id, project_id, hypothesis, independent_variable, dependent_variable, created_at, updated_at
		FROM hypotheses WHERE project_id = $1`
	var section models.Hypothesis
	if err := r.db.GetContext(ctx, &section, query, projectID); err != nil {
		return nil, err
	}
	return &section, nil
}

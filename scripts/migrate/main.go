package main

import (
	"log"

	"github.com/annelaughry/FFYM/pkg/config"
	"github.com/annelaughry/FFYM/pkg/database"
)

// statements run in order; every one is idempotent so the tool can be
// re-applied against an existing database.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ,
		ip_address VARCHAR(45) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id)`,

	`CREATE TABLE IF NOT EXISTS classrooms (
		id UUID PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		code VARCHAR(12) NOT NULL UNIQUE,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS memberships (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		classroom_id UUID NOT NULL REFERENCES classrooms(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, classroom_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_classroom ON memberships(classroom_id)`,

	`CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id UUID PRIMARY KEY,
		classroom_id UUID NOT NULL REFERENCES classrooms(id) ON DELETE CASCADE,
		article_id UUID REFERENCES articles(id) ON DELETE SET NULL,
		title VARCHAR(200) NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		due_at TIMESTAMPTZ,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_classroom ON assignments(classroom_id)`,

	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY,
		assignment_id UUID NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		prompt TEXT NOT NULL,
		ord INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_assignment ON questions(assignment_id)`,

	`CREATE TABLE IF NOT EXISTS student_responses (
		id UUID PRIMARY KEY,
		assignment_id UUID NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		answer TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (assignment_id, question_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_assignment ON student_responses(assignment_id)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id UUID PRIMARY KEY,
		response_id UUID NOT NULL UNIQUE REFERENCES student_responses(id) ON DELETE CASCADE,
		teacher_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		comment TEXT NOT NULL DEFAULT '',
		score NUMERIC(5,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_active_owner ON projects(owner_id) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS group_members (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name VARCHAR(200) NOT NULL,
		email VARCHAR(254) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_members_project ON group_members(project_id)`,

	`CREATE TABLE IF NOT EXISTS background_research (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
		topic TEXT NOT NULL DEFAULT '',
		big_picture TEXT NOT NULL DEFAULT '',
		prior_findings TEXT NOT NULL DEFAULT '',
		key_terms TEXT NOT NULL DEFAULT '',
		term_definitions TEXT NOT NULL DEFAULT '',
		current_events TEXT NOT NULL DEFAULT '',
		real_world TEXT NOT NULL DEFAULT '',
		sources TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS research_questions (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
		problem_statement TEXT NOT NULL DEFAULT '',
		question_brainstorm TEXT NOT NULL DEFAULT '',
		so_what TEXT NOT NULL DEFAULT '',
		evaluate TEXT NOT NULL DEFAULT '',
		final_question TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS hypotheses (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
		hypothesis TEXT NOT NULL DEFAULT '',
		independent_variable TEXT NOT NULL DEFAULT '',
		dependent_variable TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	log.Printf("applying schema to %s", cfg.Database.Name)
	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("statement %d failed: %v", i+1, err)
		}
	}
	log.Println("schema up to date")
}

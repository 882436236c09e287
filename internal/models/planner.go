package models

import "time"

// Project is a user's research undertaking. At most one project per owner is
// active at any time, enforced by a partial unique index.
type Project struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Title     string    `db:"title" json:"title"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupMember is one person listed when a project starts.
type GroupMember struct {
	ID        string `db:"id" json:"id"`
	ProjectID string `db:"project_id" json:"project_id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
}

// BackgroundResearch is the first stage singleton of a project.
type BackgroundResearch struct {
	ID              string    `db:"id" json:"id"`
	ProjectID       string    `db:"project_id" json:"project_id"`
	Topic           string    `db:"topic" json:"topic"`
	BigPicture      string    `db:"big_picture" json:"big_picture"`
	PriorFindings   string    `db:"prior_findings" json:"prior_findings"`
	KeyTerms        string    `db:"key_terms" json:"key_terms"`
	TermDefinitions string    `db:"term_definitions" json:"term_definitions"`
	CurrentEvents   string    `db:"current_events" json:"current_events"`
	RealWorld       string    `db:"real_world" json:"real_world"`
	Sources         string    `db:"sources" json:"sources"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ResearchQuestions is the second stage singleton of a project.
type ResearchQuestions struct {
	ID                 string    `db:"id" json:"id"`
	ProjectID          string    `db:"project_id" json:"project_id"`
	ProblemStatement   string    `db:"problem_statement" json:"problem_statement"`
	QuestionBrainstorm string    `db:"question_brainstorm" json:"question_brainstorm"`
	SoWhat             string    `db:"so_what" json:"so_what"`
	Evaluate           string    `db:"evaluate" json:"evaluate"`
	FinalQuestion      string    `db:"final_question" json:"final_question"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Hypothesis is the third stage singleton of a project.
type Hypothesis struct {
	ID                  string    `db:"id" json:"id"`
	ProjectID           string    `db:"project_id" json:"project_id"`
	Hypothesis          string    `db:"hypothesis" json:"hypothesis"`
	IndependentVariable string    `db:"independent_variable" json:"independent_variable"`
	DependentVariable   string    `db:"dependent_variable" json:"dependent_variable"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// ProjectDocument is the staff-facing composite of a project and its three
// stage singletons. A nil stage means the group never visited that stage.
type ProjectDocument struct {
	Project            Project             `json:"project"`
	Members            []GroupMember       `json:"members"`
	BackgroundResearch *BackgroundResearch `json:"background_research"`
	ResearchQuestions  *ResearchQuestions  `json:"research_questions"`
	Hypothesis         *Hypothesis         `json:"hypothesis"`
}

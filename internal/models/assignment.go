package models

import "time"

// Assignment is an ordered question set within a classroom, gated by the
// published flag for student visibility.
type Assignment struct {
	ID           string     `db:"id" json:"id"`
	ClassroomID  string     `db:"classroom_id" json:"classroom_id"`
	ArticleID    *string    `db:"article_id" json:"article_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	Instructions string     `db:"instructions" json:"instructions"`
	Link         string     `db:"link" json:"link"`
	DueAt        *time.Time `db:"due_at" json:"due_at,omitempty"`
	Published    bool       `db:"published" json:"published"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Question is one prompt of an assignment. Ord is teacher-supplied and only
// affects display sequence; duplicates and gaps are allowed.
type Question struct {
	ID           string `db:"id" json:"id"`
	AssignmentID string `db:"assignment_id" json:"assignment_id"`
	Prompt       string `db:"prompt" json:"prompt"`
	Ord          int    `db:"ord" json:"ord"`
}

// QuestionInput is one entry of the full replacement question set supplied
// when an assignment is created or edited. A blank ID marks a new question;
// live questions whose IDs are absent from the set get deleted.
type QuestionInput struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt" validate:"required"`
	Ord    int    `json:"ord" validate:"min=0"`
}

// AssignmentDetail bundles an assignment with its questions ordered by
// (ord, id).
type AssignmentDetail struct {
	Assignment Assignment `json:"assignment"`
	Questions  []Question `json:"questions"`
}

// UpcomingAssignment is a dashboard row for a published assignment in one of
// the student's classrooms.
type UpcomingAssignment struct {
	ID            string     `db:"id" json:"id"`
	ClassroomID   string     `db:"classroom_id" json:"classroom_id"`
	ClassroomName string     `db:"classroom_name" json:"classroom_name"`
	Title         string     `db:"title" json:"title"`
	DueAt         *time.Time `db:"due_at" json:"due_at,omitempty"`
}

package models

import "time"

// StudentResponse is one student's answer to one question of one assignment.
// At most one row exists per (assignment, question, student). SubmittedAt is
// set on first submission and never advanced by overwrites.
type StudentResponse struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	QuestionID   string    `db:"question_id" json:"question_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Answer       string    `db:"answer" json:"answer"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// Feedback is the singleton teacher review attached to one response. Repeat
// reviews overwrite comment and score in place; TeacherID tracks whoever
// saved last.
type Feedback struct {
	ID         string    `db:"id" json:"id"`
	ResponseID string    `db:"response_id" json:"response_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	Comment    string    `db:"comment" json:"comment"`
	Score      *float64  `db:"score" json:"score,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewRow is one entry of the teacher's grading dashboard: a response
// joined with its question, student and possibly-absent feedback.
type ReviewRow struct {
	ResponseID      string     `db:"response_id" json:"response_id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	StudentUsername string     `db:"student_username" json:"student_username"`
	QuestionID      string     `db:"question_id" json:"question_id"`
	QuestionPrompt  string     `db:"question_prompt" json:"question_prompt"`
	QuestionOrd     int        `db:"question_ord" json:"question_ord"`
	Answer          string     `db:"answer" json:"answer"`
	SubmittedAt     time.Time  `db:"submitted_at" json:"submitted_at"`
	FeedbackComment *string    `db:"feedback_comment" json:"feedback_comment,omitempty"`
	FeedbackScore   *float64   `db:"feedback_score" json:"feedback_score,omitempty"`
	FeedbackAt      *time.Time `db:"feedback_at" json:"feedback_at,omitempty"`
}

// StudentReviewGroup groups a student's dashboard rows.
type StudentReviewGroup struct {
	StudentID       string      `json:"student_id"`
	StudentUsername string      `json:"student_username"`
	Rows            []ReviewRow `json:"rows"`
}

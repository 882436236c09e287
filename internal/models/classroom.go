package models

import "time"

// MembershipRole is the role a user holds inside one classroom.
type MembershipRole string

const (
	MembershipTeacher MembershipRole = "teacher"
	MembershipStudent MembershipRole = "student"
)

// Classroom is a named group owned by one teacher and joined via a unique code.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Membership binds a user to a classroom with a role. A user has exactly one
// membership per classroom.
type Membership struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	ClassroomID string         `db:"classroom_id" json:"classroom_id"`
	Role        MembershipRole `db:"role" json:"role"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// RosterEntry is one student row on the teacher's classroom page.
type RosterEntry struct {
	UserID   string `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	JoinedAt string `db:"joined_at" json:"joined_at"`
}

// AssignmentSummary is an assignment row annotated with the number of
// distinct students who submitted at least one response.
type AssignmentSummary struct {
	ID         string     `db:"id" json:"id"`
	Title      string     `db:"title" json:"title"`
	DueAt      *time.Time `db:"due_at" json:"due_at,omitempty"`
	Published  bool       `db:"published" json:"published"`
	Submitters int        `db:"submitters" json:"submitters"`
}

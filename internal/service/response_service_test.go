package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type mockResponseRepo struct {
	responses  map[string]*models.StudentResponse
	rows       []models.ReviewRow
	byQuestion map[string]models.StudentResponse

	submittedAnswers map[string]string
	savedFeedback    *models.Feedback
}

func (m *mockResponseRepo) FindByID(_ context.Context, id string) (*models.StudentResponse, error) {
	if r, ok := m.responses[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResponseRepo) ListForStudent(_ context.Context, _, _ string) (map[string]models.StudentResponse, error) {
	return m.byQuestion, nil
}

func (m *mockResponseRepo) SubmitBatch(_ context.Context, _, _ string, answers map[string]string) error {
	m.submittedAnswers = answers
	return nil
}

func (m *mockResponseRepo) UpsertFeedback(_ context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	m.savedFeedback = feedback
	stored := *feedback
	stored.ID = "fb-1"
	return &stored, nil
}

func (m *mockResponseRepo) ReviewRows(_ context.Context, _ string) ([]models.ReviewRow, error) {
	return m.rows, nil
}

type mockAssignmentReader struct {
	assignment *models.Assignment
	published  bool
	questions  []models.Question
}

func (m *mockAssignmentReader) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	if m.assignment != nil && m.assignment.ID == id {
		return m.assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentReader) FindPublishedByID(_ context.Context, id string) (*models.Assignment, error) {
	if m.assignment != nil && m.assignment.ID == id && m.published {
		return m.assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentReader) QuestionsByAssignment(_ context.Context, _ string) ([]models.Question, error) {
	return m.questions, nil
}

type mockClassroomAccess struct {
	classroom *models.Classroom
	canManage bool
}

func (m *mockClassroomAccess) FindByID(_ context.Context, _ string) (*models.Classroom, error) {
	return m.classroom, nil
}

func (m *mockClassroomAccess) CanManage(_ context.Context, _ string, _ *models.Classroom) (bool, error) {
	return m.canManage, nil
}

func floatPtr(f float64) *float64 { return &f }

func TestResponseServiceSubmitDropsUnknownQuestions(t *testing.T) {
	repo := &mockResponseRepo{}
	assignments := &mockAssignmentReader{
		assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"},
		published:  true,
		questions:  []models.Question{{ID: "q-1"}, {ID: "q-2"}},
	}
	svc := NewResponseService(repo, assignments, nil, nil, nil, zap.NewNop())

	err := svc.Submit(context.Background(), "student-1", "a-1", SubmitResponsesRequest{Answers: map[string]string{
		"q-1":      "mitochondria",
		"q-stale":  "left over from an edited assignment",
		"q-absent": "",
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q-1": "mitochondria"}, repo.submittedAnswers)
}

func TestResponseServiceSubmitUnpublishedHidden(t *testing.T) {
	assignments := &mockAssignmentReader{
		assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"},
		published:  false,
	}
	svc := NewResponseService(&mockResponseRepo{}, assignments, nil, nil, nil, zap.NewNop())

	err := svc.Submit(context.Background(), "student-1", "a-1", SubmitResponsesRequest{Answers: map[string]string{"q-1": "x"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceSubmitRequiresAnswers(t *testing.T) {
	svc := NewResponseService(&mockResponseRepo{}, &mockAssignmentReader{}, nil, nil, nil, zap.NewNop())

	err := svc.Submit(context.Background(), "student-1", "a-1", SubmitResponsesRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceReviewScoreOutOfRange(t *testing.T) {
	svc := NewResponseService(&mockResponseRepo{}, &mockAssignmentReader{}, nil, nil, nil, zap.NewNop())

	_, err := svc.Review(context.Background(), "teacher-1", "r-1", SaveFeedbackRequest{Score: floatPtr(1000)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Review(context.Background(), "teacher-1", "r-1", SaveFeedbackRequest{Score: floatPtr(-1000)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceReviewRecordsLatestTeacher(t *testing.T) {
	repo := &mockResponseRepo{responses: map[string]*models.StudentResponse{
		"r-1": {ID: "r-1", AssignmentID: "a-1", StudentID: "student-1"},
	}}
	assignments := &mockAssignmentReader{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	access := &mockClassroomAccess{classroom: &models.Classroom{ID: "c-1"}, canManage: true}
	svc := NewResponseService(repo, assignments, access, access, nil, zap.NewNop())

	feedback, err := svc.Review(context.Background(), "teacher-2", "r-1", SaveFeedbackRequest{Comment: "good work", Score: floatPtr(9.5)})
	require.NoError(t, err)
	assert.Equal(t, "teacher-2", feedback.TeacherID)
	assert.Equal(t, "r-1", repo.savedFeedback.ResponseID)
}

func TestResponseServiceReviewForbidden(t *testing.T) {
	repo := &mockResponseRepo{responses: map[string]*models.StudentResponse{
		"r-1": {ID: "r-1", AssignmentID: "a-1"},
	}}
	assignments := &mockAssignmentReader{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	access := &mockClassroomAccess{classroom: &models.Classroom{ID: "c-1"}, canManage: false}
	svc := NewResponseService(repo, assignments, access, access, nil, zap.NewNop())

	_, err := svc.Review(context.Background(), "student-1", "r-1", SaveFeedbackRequest{Comment: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceDashboardGroupsByStudent(t *testing.T) {
	rows := []models.ReviewRow{
		{ResponseID: "r-1", StudentID: "s-1", StudentUsername: "amira", QuestionPrompt: "Q1", Answer: "a"},
		{ResponseID: "r-2", StudentID: "s-1", StudentUsername: "amira", QuestionPrompt: "Q2", Answer: "b"},
		{ResponseID: "r-3", StudentID: "s-2", StudentUsername: "ben", QuestionPrompt: "Q1", Answer: "c"},
	}
	repo := &mockResponseRepo{rows: rows}
	assignments := &mockAssignmentReader{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	access := &mockClassroomAccess{classroom: &models.Classroom{ID: "c-1"}, canManage: true}
	svc := NewResponseService(repo, assignments, access, access, nil, zap.NewNop())

	dashboard, err := svc.Dashboard(context.Background(), "teacher-1", "a-1")
	require.NoError(t, err)
	require.Len(t, dashboard.Students, 2)
	assert.Equal(t, "amira", dashboard.Students[0].StudentUsername)
	assert.Len(t, dashboard.Students[0].Rows, 2)
	assert.Len(t, dashboard.Students[1].Rows, 1)
}

func TestResponseServiceExportCSV(t *testing.T) {
	submittedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rows := []models.ReviewRow{
		{
			ResponseID: "r-1", StudentID: "s-1", StudentUsername: "amira",
			QuestionPrompt: "What did you observe?", Answer: "growth stalled",
			SubmittedAt:     submittedAt,
			FeedbackComment: strPtr("nice detail"),
			FeedbackScore:   floatPtr(8.5),
		},
		{
			ResponseID: "r-2", StudentID: "s-2", StudentUsername: "ben",
			QuestionPrompt: "What did you observe?", Answer: "no change",
			SubmittedAt:    submittedAt,
		},
	}
	repo := &mockResponseRepo{rows: rows}
	assignments := &mockAssignmentReader{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	access := &mockClassroomAccess{classroom: &models.Classroom{ID: "c-1"}, canManage: true}
	svc := NewResponseService(repo, assignments, access, access, nil, zap.NewNop())

	dataset, err := svc.ExportCSV(context.Background(), "teacher-1", "a-1")
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, []string{"Student", "Question", "Answer", "Submitted At", "Feedback", "Score"}, dataset.Headers)
	assert.Equal(t, map[string]string{
		"Student":      "amira",
		"Question":     "What did you observe?",
		"Answer":       "growth stalled",
		"Submitted At": "2026-03-14 09:30:00",
		"Feedback":     "nice detail",
		"Score":        "8.50",
	}, dataset.Rows[0])
	assert.Equal(t, "", dataset.Rows[1]["Feedback"])
	assert.Equal(t, "", dataset.Rows[1]["Score"])
}

func strPtr(s string) *string { return &s }

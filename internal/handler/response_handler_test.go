package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/middleware"
	"github.com/annelaughry/FFYM/internal/models"
	"github.com/annelaughry/FFYM/internal/service"
	"github.com/annelaughry/FFYM/pkg/export"
)

type responseRepoStub struct {
	rows      []models.ReviewRow
	submitted map[string]string
}

func (s *responseRepoStub) FindByID(_ context.Context, _ string) (*models.StudentResponse, error) {
	return nil, sql.ErrNoRows
}

func (s *responseRepoStub) ListForStudent(_ context.Context, _, _ string) (map[string]models.StudentResponse, error) {
	return nil, nil
}

func (s *responseRepoStub) SubmitBatch(_ context.Context, _, _ string, answers map[string]string) error {
	s.submitted = answers
	return nil
}

func (s *responseRepoStub) UpsertFeedback(_ context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	return feedback, nil
}

func (s *responseRepoStub) ReviewRows(_ context.Context, _ string) ([]models.ReviewRow, error) {
	return s.rows, nil
}

type assignmentReaderStub struct {
	assignment *models.Assignment
	published  bool
	questions  []models.Question
}

func (s *assignmentReaderStub) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	if s.assignment != nil && s.assignment.ID == id {
		return s.assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentReaderStub) FindPublishedByID(_ context.Context, id string) (*models.Assignment, error) {
	if s.assignment != nil && s.assignment.ID == id && s.published {
		return s.assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentReaderStub) QuestionsByAssignment(_ context.Context, _ string) ([]models.Question, error) {
	return s.questions, nil
}

type classroomAccessStub struct {
	classroom *models.Classroom
	canManage bool
}

func (s *classroomAccessStub) FindByID(_ context.Context, _ string) (*models.Classroom, error) {
	return s.classroom, nil
}

func (s *classroomAccessStub) CanManage(_ context.Context, _ string, _ *models.Classroom) (bool, error) {
	return s.canManage, nil
}

func newResponseHandler(repo *responseRepoStub, assignments *assignmentReaderStub, canManage bool) *ResponseHandler {
	access := &classroomAccessStub{classroom: &models.Classroom{ID: "c-1"}, canManage: canManage}
	svc := service.NewResponseService(repo, assignments, access, access, nil, zap.NewNop())
	return NewResponseHandler(svc, export.NewCSVExporter())
}

func TestResponseHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &responseRepoStub{}
	assignments := &assignmentReaderStub{
		assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"},
		published:  true,
		questions:  []models.Question{{ID: "q-1"}},
	}
	h := newResponseHandler(repo, assignments, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/a-1/responses", strings.NewReader(`{"answers":{"q-1":"chloroplast"}}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	h.Submit(c)
	// c.Status does not flush to the recorder outside the engine, so read the
	// status off the context writer.
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	require.Equal(t, map[string]string{"q-1": "chloroplast"}, repo.submitted)
}

func TestResponseHandlerSubmitUnpublishedAssignment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	assignments := &assignmentReaderStub{
		assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"},
		published:  false,
	}
	h := newResponseHandler(&responseRepoStub{}, assignments, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/a-1/responses", strings.NewReader(`{"answers":{"q-1":"x"}}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	h.Submit(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestResponseHandlerSubmitMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newResponseHandler(&responseRepoStub{}, &assignmentReaderStub{}, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/assignments/a-1/responses", strings.NewReader(`{"answers":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResponseHandlerDashboardForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	assignments := &assignmentReaderStub{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	h := newResponseHandler(&responseRepoStub{}, assignments, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/teacher/assignments/a-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	h.Dashboard(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestResponseHandlerExportSetsAttachmentHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &responseRepoStub{rows: []models.ReviewRow{
		{ResponseID: "r-1", StudentID: "s-1", StudentUsername: "amira", QuestionPrompt: "Q1", Answer: "a"},
	}}
	assignments := &assignmentReaderStub{assignment: &models.Assignment{ID: "a-1", ClassroomID: "c-1"}}
	h := newResponseHandler(repo, assignments, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/teacher/assignments/a-1/export", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "assignment-a-1-responses.csv")
	require.Contains(t, w.Body.String(), "amira")
}

func TestResponseHandlerFeedbackScoreTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newResponseHandler(&responseRepoStub{}, &assignmentReaderStub{}, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/responses/r-1/feedback", strings.NewReader(`{"comment":"great","score":1000}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Feedback(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/export"
)

type mockPlannerRepo struct {
	activeByOwner map[string]*models.Project
	projectsByID  map[string]*models.Project
	members       map[string][]models.GroupMember

	background *models.BackgroundResearch
	questions  *models.ResearchQuestions
	hypothesis *models.Hypothesis

	startedProject *models.Project
	startedMembers []models.GroupMember
}

func newMockPlannerRepo() *mockPlannerRepo {
	return &mockPlannerRepo{
		activeByOwner: make(map[string]*models.Project),
		projectsByID:  make(map[string]*models.Project),
		members:       make(map[string][]models.GroupMember),
	}
}

func (m *mockPlannerRepo) FindActiveProject(_ context.Context, ownerID string) (*models.Project, error) {
	if p, ok := m.activeByOwner[ownerID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPlannerRepo) GetOrCreateActiveProject(_ context.Context, ownerID, title string) (*models.Project, error) {
	if p, ok := m.activeByOwner[ownerID]; ok {
		return p, nil
	}
	p := &models.Project{ID: "p-default", OwnerID: ownerID, Title: title, IsActive: true}
	m.activeByOwner[ownerID] = p
	m.projectsByID[p.ID] = p
	return p, nil
}

func (m *mockPlannerRepo) FindByID(_ context.Context, id string) (*models.Project, error) {
	if p, ok := m.projectsByID[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPlannerRepo) StartProject(_ context.Context, project *models.Project, members []models.GroupMember) error {
	project.ID = "p-new"
	if prior, ok := m.activeByOwner[project.OwnerID]; ok {
		prior.IsActive = false
	}
	m.activeByOwner[project.OwnerID] = project
	m.projectsByID[project.ID] = project
	m.members[project.ID] = members
	m.startedProject = project
	m.startedMembers = members
	return nil
}

func (m *mockPlannerRepo) MembersByProject(_ context.Context, projectID string) ([]models.GroupMember, error) {
	return m.members[projectID], nil
}

func (m *mockPlannerRepo) GetOrCreateBackgroundResearch(_ context.Context, projectID string) (*models.BackgroundResearch, error) {
	if m.background == nil {
		m.background = &models.BackgroundResearch{ID: "br-1", ProjectID: projectID}
	}
	return m.background, nil
}

func (m *mockPlannerRepo) UpdateBackgroundResearch(_ context.Context, section *models.BackgroundResearch) error {
	m.background = section
	return nil
}

func (m *mockPlannerRepo) FindBackgroundResearch(_ context.Context, _ string) (*models.BackgroundResearch, error) {
	if m.background == nil {
		return nil, sql.ErrNoRows
	}
	return m.background, nil
}

func (m *mockPlannerRepo) GetOrCreateResearchQuestions(_ context.Context, projectID string) (*models.ResearchQuestions, error) {
	if m.questions == nil {
		m.questions = &models.ResearchQuestions{ID: "rq-1", ProjectID: projectID}
	}
	return m.questions, nil
}

func (m *mockPlannerRepo) UpdateResearchQuestions(_ context.Context, section *models.ResearchQuestions) error {
	m.questions = section
	return nil
}

func (m *mockPlannerRepo) FindResearchQuestions(_ context.Context, _ string) (*models.ResearchQuestions, error) {
	if m.questions == nil {
		return nil, sql.ErrNoRows
	}
	return m.questions, nil
}

func (m *mockPlannerRepo) GetOrCreateHypothesis(_ context.Context, projectID string) (*models.Hypothesis, error) {
	if m.hypothesis == nil {
		m.hypothesis = &models.Hypothesis{ID: "h-1", ProjectID: projectID}
	}
	return m.hypothesis, nil
}

func (m *mockPlannerRepo) UpdateHypothesis(_ context.Context, section *models.Hypothesis) error {
	m.hypothesis = section
	return nil
}

func (m *mockPlannerRepo) FindHypothesis(_ context.Context, _ string) (*models.Hypothesis, error) {
	if m.hypothesis == nil {
		return nil, sql.ErrNoRows
	}
	return m.hypothesis, nil
}

func newPlannerService(repo plannerRepository) *PlannerService {
	return NewPlannerService(repo, export.NewPDFExporter(), nil, zap.NewNop())
}

func TestPlannerServiceHomeEmptyWhenNoProject(t *testing.T) {
	svc := newPlannerService(newMockPlannerRepo())

	home, err := svc.Home(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Nil(t, home.Project)
	assert.Empty(t, home.Members)
}

func TestPlannerServiceStartProjectDefaultsTitle(t *testing.T) {
	repo := newMockPlannerRepo()
	svc := newPlannerService(repo)

	home, err := svc.StartProject(context.Background(), "student-1", StartProjectRequest{Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, "Untitled Project", home.Project.Title)
	assert.True(t, home.Project.IsActive)
}

func TestPlannerServiceStartProjectReplacesActive(t *testing.T) {
	repo := newMockPlannerRepo()
	svc := newPlannerService(repo)

	first, err := svc.StartProject(context.Background(), "student-1", StartProjectRequest{Title: "Bean Growth"})
	require.NoError(t, err)
	_, err = svc.StartProject(context.Background(), "student-1", StartProjectRequest{Title: "Mold Study"})
	require.NoError(t, err)

	assert.False(t, first.Project.IsActive)
	assert.Equal(t, "Mold Study", repo.activeByOwner["student-1"].Title)
}

func TestPlannerServiceStartProjectParsesMembers(t *testing.T) {
	repo := newMockPlannerRepo()
	svc := newPlannerService(repo)

	home, err := svc.StartProject(context.Background(), "student-1", StartProjectRequest{
		Title:   "Bean Growth",
		Members: "Amira Hassan <amira@example.org>\n\nBen Ortiz\n",
	})
	require.NoError(t, err)
	require.Len(t, home.Members, 2)
	assert.Equal(t, "Amira Hassan", home.Members[0].Name)
	assert.Equal(t, "amira@example.org", home.Members[0].Email)
	assert.Equal(t, "Ben Ortiz", home.Members[1].Name)
	assert.Equal(t, "", home.Members[1].Email)
}

func TestParseMemberLines(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []models.GroupMember
	}{
		{
			name: "name and email",
			raw:  "Amira Hassan <amira@example.org>",
			want: []models.GroupMember{{Name: "Amira Hassan", Email: "amira@example.org"}},
		},
		{
			name: "bare name",
			raw:  "Ben Ortiz",
			want: []models.GroupMember{{Name: "Ben Ortiz"}},
		},
		{
			name: "unbalanced bracket keeps whole line",
			raw:  "Ben <ortiz",
			want: []models.GroupMember{{Name: "Ben <ortiz"}},
		},
		{
			name: "email only",
			raw:  "<amira@example.org>",
			want: []models.GroupMember{{Name: "<amira@example.org>", Email: "amira@example.org"}},
		},
		{
			name: "blank lines skipped",
			raw:  "\n  \nBen Ortiz\n\n",
			want: []models.GroupMember{{Name: "Ben Ortiz"}},
		},
		{
			name: "empty input",
			raw:  "",
			want: []models.GroupMember{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseMemberLines(tc.raw))
		})
	}
}

func TestPlannerServiceStageCreatesDefaultProject(t *testing.T) {
	repo := newMockPlannerRepo()
	svc := newPlannerService(repo)

	section, err := svc.BackgroundResearch(context.Background(), "student-1")
	require.NoError(t, err)

	project := repo.activeByOwner["student-1"]
	require.NotNil(t, project)
	assert.Equal(t, "My Research Project", project.Title)
	assert.True(t, project.IsActive)
	assert.Equal(t, project.ID, section.ProjectID)

	// A second stage reuses the same project instead of creating another.
	hyp, err := svc.SaveHypothesis(context.Background(), "student-1", HypothesisRequest{Hypothesis: "More light, taller plants"})
	require.NoError(t, err)
	assert.Equal(t, project.ID, hyp.ProjectID)
	assert.Same(t, project, repo.activeByOwner["student-1"])
}

func TestPlannerServiceSaveBackgroundResearchRoundTrip(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.activeByOwner["student-1"] = &models.Project{ID: "p-1", OwnerID: "student-1", IsActive: true}
	svc := newPlannerService(repo)

	saved, err := svc.SaveBackgroundResearch(context.Background(), "student-1", BackgroundResearchRequest{
		Topic:      "Bean germination",
		BigPicture: "Light and growth",
		Sources:    "Intro botany text",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bean germination", saved.Topic)

	reloaded, err := svc.BackgroundResearch(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "Bean germination", reloaded.Topic)
	assert.Equal(t, "Intro botany text", reloaded.Sources)
}

func TestPlannerServiceDocumentSkipsUnvisitedStages(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.projectsByID["p-1"] = &models.Project{ID: "p-1", Title: "Bean Growth"}
	repo.questions = &models.ResearchQuestions{ID: "rq-1", ProjectID: "p-1", FinalQuestion: "Does light color matter?"}
	svc := newPlannerService(repo)

	doc, err := svc.Document(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Nil(t, doc.BackgroundResearch)
	assert.Nil(t, doc.Hypothesis)
	require.NotNil(t, doc.ResearchQuestions)
	assert.Equal(t, "Does light color matter?", doc.ResearchQuestions.FinalQuestion)
}

func TestPlannerServiceDocumentUnknownProject(t *testing.T) {
	svc := newPlannerService(newMockPlannerRepo())

	_, err := svc.Document(context.Background(), "p-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceDocumentPDF(t *testing.T) {
	repo := newMockPlannerRepo()
	repo.projectsByID["p-1"] = &models.Project{ID: "p-1", Title: "Bean Growth: phase 2"}
	repo.members["p-1"] = []models.GroupMember{{Name: "Amira Hassan", Email: "amira@example.org"}}
	repo.hypothesis = &models.Hypothesis{ID: "h-1", ProjectID: "p-1", Hypothesis: "Blue light grows taller plants"}
	svc := newPlannerService(repo)

	content, filename, err := svc.DocumentPDF(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Bean_Growth_phase_2.pdf", filename)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Bean_Growth", sanitizeFilename("Bean Growth"))
	assert.Equal(t, "project", sanitizeFilename("   "))
	assert.Equal(t, "project", sanitizeFilename("???"))
	assert.Equal(t, "notes_v2", sanitizeFilename("notes-v2"))
}

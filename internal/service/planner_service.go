package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/export"
)

// defaultProjectTitle names the project created implicitly when a student
// opens a planner stage before starting one.
const defaultProjectTitle = "My Research Project"

type plannerRepository interface {
	FindActiveProject(ctx context.Context, ownerID string) (*models.Project, error)
	GetOrCreateActiveProject(ctx context.Context, ownerID, title string) (*models.Project, error)
	FindByID(ctx context.Context, id string) (*models.Project, error)
	StartProject(ctx context.Context, project *models.Project, members []models.GroupMember) error
	MembersByProject(ctx context.Context, projectID string) ([]models.GroupMember, error)

	GetOrCreateBackgroundResearch(ctx context.Context, projectID string) (*models.BackgroundResearch, error)
	UpdateBackgroundResearch(ctx context.Context, section *models.BackgroundResearch) error
	FindBackgroundResearch(ctx context.Context, projectID string) (*models.BackgroundResearch, error)

	GetOrCreateResearchQuestions(ctx context.Context, projectID string) (*models.ResearchQuestions, error)
	UpdateResearchQuestions(ctx context.Context, section *models.ResearchQuestions) error
	FindResearchQuestions(ctx context.Context, projectID string) (*models.ResearchQuestions, error)

	GetOrCreateHypothesis(ctx context.Context, projectID string) (*models.Hypothesis, error)
	UpdateHypothesis(ctx context.Context, section *models.Hypothesis) error
	FindHypothesis(ctx context.Context, projectID string) (*models.Hypothesis, error)
}

// StartProjectRequest begins a fresh planner run. Members holds one line per
// group member, "Full Name <email>" or a bare name.
type StartProjectRequest struct {
	Title   string `json:"title" validate:"max=200"`
	Members string `json:"members"`
}

// BackgroundResearchRequest carries the editable fields of the first stage.
type BackgroundResearchRequest struct {
	Topic           string `json:"topic"`
	BigPicture      string `json:"big_picture"`
	PriorFindings   string `json:"prior_findings"`
	KeyTerms        string `json:"key_terms"`
	TermDefinitions string `json:"term_definitions"`
	CurrentEvents   string `json:"current_events"`
	RealWorld       string `json:"real_world"`
	Sources         string `json:"sources"`
}

// ResearchQuestionsRequest carries the editable fields of the second stage.
type ResearchQuestionsRequest struct {
	ProblemStatement   string `json:"problem_statement"`
	QuestionBrainstorm string `json:"question_brainstorm"`
	SoWhat             string `json:"so_what"`
	Evaluate           string `json:"evaluate"`
	FinalQuestion      string `json:"final_question"`
}

// HypothesisRequest carries the editable fields of the third stage.
type HypothesisRequest struct {
	Hypothesis          string `json:"hypothesis"`
	IndependentVariable string `json:"independent_variable"`
	DependentVariable   string `json:"dependent_variable"`
}

// PlannerHome is the planner landing view: the caller's active project and
// its group, or nil when no project has been started.
type PlannerHome struct {
	Project *models.Project      `json:"project"`
	Members []models.GroupMember `json:"members"`
}

// PlannerService walks students through the staged research-project planner
// and exposes the assembled document to staff.
type PlannerService struct {
	repo      plannerRepository
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlannerService constructs a PlannerService.
func NewPlannerService(repo plannerRepository, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannerService{repo: repo, pdf: pdf, validator: validate, logger: logger}
}

// Home returns the caller's active project with its members, or an empty
// view when none exists.
func (s *PlannerService) Home(ctx context.Context, userID string) (*PlannerHome, error) {
	project, err := s.repo.FindActiveProject(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &PlannerHome{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active project")
	}
	members, err := s.repo.MembersByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	return &PlannerHome{Project: project, Members: members}, nil
}

// StartProject deactivates the caller's current project, if any, and creates
// a new active one with the parsed member list. Both steps commit in one
// transaction, so at most one project per owner is ever active.
func (s *PlannerService) StartProject(ctx context.Context, userID string, req StartProjectRequest) (*PlannerHome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Project"
	}
	project := &models.Project{
		OwnerID:  userID,
		Title:    title,
		IsActive: true,
	}
	members := parseMemberLines(req.Members)

	if err := s.repo.StartProject(ctx, project, members); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start project")
	}

	stored, err := s.repo.MembersByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	return &PlannerHome{Project: project, Members: stored}, nil
}

// BackgroundResearch returns the first-stage worksheet of the caller's
// active project, creating its blank row on first visit.
func (s *PlannerService) BackgroundResearch(ctx context.Context, userID string) (*models.BackgroundResearch, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateBackgroundResearch(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load background research")
	}
	return section, nil
}

// SaveBackgroundResearch overwrites the first-stage worksheet.
func (s *PlannerService) SaveBackgroundResearch(ctx context.Context, userID string, req BackgroundResearchRequest) (*models.BackgroundResearch, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateBackgroundResearch(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load background research")
	}

	section.Topic = req.Topic
	section.BigPicture = req.BigPicture
	section.PriorFindings = req.PriorFindings
	section.KeyTerms = req.KeyTerms
	section.TermDefinitions = req.TermDefinitions
	section.CurrentEvents = req.CurrentEvents
	section.RealWorld = req.RealWorld
	section.Sources = req.Sources

	if err := s.repo.UpdateBackgroundResearch(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save background research")
	}
	return section, nil
}

// ResearchQuestions returns the second-stage worksheet, creating it blank on
// first visit.
func (s *PlannerService) ResearchQuestions(ctx context.Context, userID string) (*models.ResearchQuestions, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateResearchQuestions(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load research questions")
	}
	return section, nil
}

// SaveResearchQuestions overwrites the second-stage worksheet.
func (s *PlannerService) SaveResearchQuestions(ctx context.Context, userID string, req ResearchQuestionsRequest) (*models.ResearchQuestions, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateResearchQuestions(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load research questions")
	}

	section.ProblemStatement = req.ProblemStatement
	section.QuestionBrainstorm = req.QuestionBrainstorm
	section.SoWhat = req.SoWhat
	section.Evaluate = req.Evaluate
	section.FinalQuestion = req.FinalQuestion

	if err := s.repo.UpdateResearchQuestions(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save research questions")
	}
	return section, nil
}

// Hypothesis returns the third-stage worksheet, creating it blank on first
// visit.
func (s *PlannerService) Hypothesis(ctx context.Context, userID string) (*models.Hypothesis, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateHypothesis(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hypothesis")
	}
	return section, nil
}

// SaveHypothesis overwrites the third-stage worksheet.
func (s *PlannerService) SaveHypothesis(ctx context.Context, userID string, req HypothesisRequest) (*models.Hypothesis, error) {
	project, err := s.activeProject(ctx, userID)
	if err != nil {
		return nil, err
	}
	section, err := s.repo.GetOrCreateHypothesis(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hypothesis")
	}

	section.Hypothesis = req.Hypothesis
	section.IndependentVariable = req.IndependentVariable
	section.DependentVariable = req.DependentVariable

	if err := s.repo.UpdateHypothesis(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save hypothesis")
	}
	return section, nil
}

// Document assembles the full project document for staff review. Stages the
// group never opened come back nil rather than as blank rows.
func (s *PlannerService) Document(ctx context.Context, projectID string) (*models.ProjectDocument, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	members, err := s.repo.MembersByProject(ctx, project.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}

	doc := &models.ProjectDocument{Project: *project, Members: members}

	if doc.BackgroundResearch, err = s.findOptionalBackground(ctx, project.ID); err != nil {
		return nil, err
	}
	if doc.ResearchQuestions, err = s.findOptionalQuestions(ctx, project.ID); err != nil {
		return nil, err
	}
	if doc.Hypothesis, err = s.findOptionalHypothesis(ctx, project.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentPDF renders the project document as a printable PDF.
func (s *PlannerService) DocumentPDF(ctx context.Context, projectID string) ([]byte, string, error) {
	doc, err := s.Document(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	sections := make([]export.Section, 0, 4)

	memberFields := make([]export.Field, 0, len(doc.Members))
	for _, m := range doc.Members {
		value := m.Name
		if m.Email != "" {
			value = m.Name + " <" + m.Email + ">"
		}
		memberFields = append(memberFields, export.Field{Label: "Member", Value: value})
	}
	sections = append(sections, export.Section{
		Heading: "Group",
		Fields:  memberFields,
		Empty:   len(memberFields) == 0,
	})

	if br := doc.BackgroundResearch; br != nil {
		sections = append(sections, export.Section{
			Heading: "Background Research",
			Fields: []export.Field{
				{Label: "Topic", Value: br.Topic},
				{Label: "Big Picture", Value: br.BigPicture},
				{Label: "Prior Findings", Value: br.PriorFindings},
				{Label: "Key Terms", Value: br.KeyTerms},
				{Label: "Term Definitions", Value: br.TermDefinitions},
				{Label: "Current Events", Value: br.CurrentEvents},
				{Label: "Real World Connection", Value: br.RealWorld},
				{Label: "Sources", Value: br.Sources},
			},
		})
	} else {
		sections = append(sections, export.Section{Heading: "Background Research", Empty: true})
	}

	if rq := doc.ResearchQuestions; rq != nil {
		sections = append(sections, export.Section{
			Heading: "Research Questions",
			Fields: []export.Field{
				{Label: "Problem Statement", Value: rq.ProblemStatement},
				{Label: "Question Brainstorm", Value: rq.QuestionBrainstorm},
				{Label: "So What", Value: rq.SoWhat},
				{Label: "Evaluation", Value: rq.Evaluate},
				{Label: "Final Question", Value: rq.FinalQuestion},
			},
		})
	} else {
		sections = append(sections, export.Section{Heading: "Research Questions", Empty: true})
	}

	if h := doc.Hypothesis; h != nil {
		sections = append(sections, export.Section{
			Heading: "Hypothesis",
			Fields: []export.Field{
				{Label: "Hypothesis", Value: h.Hypothesis},
				{Label: "Independent Variable", Value: h.IndependentVariable},
				{Label: "Dependent Variable", Value: h.DependentVariable},
			},
		})
	} else {
		sections = append(sections, export.Section{Heading: "Hypothesis", Empty: true})
	}

	content, err := s.pdf.RenderSections(doc.Project.Title, sections)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render project pdf")
	}
	filename := sanitizeFilename(doc.Project.Title) + ".pdf"
	return content, filename, nil
}

// activeProject returns the caller's active project, creating a default one
// on first touch so every stage is reachable without an explicit start.
func (s *PlannerService) activeProject(ctx context.Context, userID string) (*models.Project, error) {
	project, err := s.repo.GetOrCreateActiveProject(ctx, userID, defaultProjectTitle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active project")
	}
	return project, nil
}

func (s *PlannerService) findOptionalBackground(ctx context.Context, projectID string) (*models.BackgroundResearch, error) {
	section, err := s.repo.FindBackgroundResearch(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load background research")
	}
	return section, nil
}

func (s *PlannerService) findOptionalQuestions(ctx context.Context, projectID string) (*models.ResearchQuestions, error) {
	section, err := s.repo.FindResearchQuestions(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load research questions")
	}
	return section, nil
}

func (s *PlannerService) findOptionalHypothesis(ctx context.Context, projectID string) (*models.Hypothesis, error) {
	section, err := s.repo.FindHypothesis(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hypothesis")
	}
	return section, nil
}

// parseMemberLines splits the member textarea into group members, one per
// line. "Name <email>" yields both parts; a line without a balanced angle
// pair is kept whole as the name. Blank lines are skipped.
func parseMemberLines(raw string) []models.GroupMember {
	members := make([]models.GroupMember, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, email := line, ""
		if open := strings.Index(line, "<"); open >= 0 {
			if rel := strings.Index(line[open:], ">"); rel > 0 {
				name = strings.TrimSpace(line[:open])
				email = strings.TrimSpace(line[open+1 : open+rel])
			}
		}
		if name == "" {
			name = line
		}
		members = append(members, models.GroupMember{Name: name, Email: email})
	}
	return members
}

func sanitizeFilename(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "project"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/annelaughry/FFYM/internal/models"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
)

type dashboardClassroomRepository interface {
	ListOwned(ctx context.Context, userID string) ([]models.Classroom, error)
	ListTeaching(ctx context.Context, userID string) ([]models.Classroom, error)
	ListByMember(ctx context.Context, userID string) ([]models.Classroom, []models.MembershipRole, error)
}

type upcomingAssignmentRepository interface {
	ListUpcoming(ctx context.Context, classroomIDs []string, horizon time.Time) ([]models.UpcomingAssignment, error)
}

// Dashboard is the role-partitioned landing view. A user can appear on both
// sides at once: teaching one classroom while enrolled as a student in
// another.
type Dashboard struct {
	Teaching []models.Classroom          `json:"teaching"`
	Enrolled []models.Classroom          `json:"enrolled"`
	Upcoming []models.UpcomingAssignment `json:"upcoming"`
}

// DashboardService assembles the landing view, optionally read-through
// cached per user.
type DashboardService struct {
	classrooms  dashboardClassroomRepository
	assignments upcomingAssignmentRepository
	cache       *CacheService
	cacheTTL    time.Duration
	dueWindow   time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService. cache may be nil to
// disable caching.
func NewDashboardService(classrooms dashboardClassroomRepository, assignments upcomingAssignmentRepository, cache *CacheService, cacheTTL, dueWindow time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if dueWindow <= 0 {
		dueWindow = 14 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		classrooms:  classrooms,
		assignments: assignments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		dueWindow:   dueWindow,
		logger:      logger,
	}
}

// Load builds the user's dashboard: classrooms they manage, classrooms they
// attend as a student, and published assignments in the attended classrooms
// due within the configured window. Cache misses fall through to Postgres;
// cache write failures only log.
func (s *DashboardService) Load(ctx context.Context, userID string) (*Dashboard, error) {
	key := dashboardCacheKey(userID)
	if s.cache.Enabled() {
		var cached Dashboard
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	dashboard, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context, userID string) (*Dashboard, error) {
	owned, err := s.classrooms.ListOwned(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load owned classrooms")
	}

	memberOf, roles, err := s.classrooms.ListByMember(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom memberships")
	}

	teaching := owned
	ownedIDs := make(map[string]struct{}, len(owned))
	for _, c := range owned {
		ownedIDs[c.ID] = struct{}{}
	}

	enrolled := make([]models.Classroom, 0)
	studentIDs := make([]string, 0)
	for i, classroom := range memberOf {
		if roles[i] == models.MembershipTeacher {
			if _, ok := ownedIDs[classroom.ID]; !ok {
				teaching = append(teaching, classroom)
			}
			continue
		}
		enrolled = append(enrolled, classroom)
		studentIDs = append(studentIDs, classroom.ID)
	}

	upcoming := make([]models.UpcomingAssignment, 0)
	if len(studentIDs) > 0 {
		horizon := time.Now().UTC().Add(s.dueWindow)
		upcoming, err = s.assignments.ListUpcoming(ctx, studentIDs, horizon)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming assignments")
		}
	}

	return &Dashboard{Teaching: teaching, Enrolled: enrolled, Upcoming: upcoming}, nil
}

package services

import (
	"strconv"
	"time"

	"dashboard/internal/config"
	"dashboard/internal/pagination"
)

// Environment badge colors.
const (
	BadgeDanger  = "danger"
	BadgeSuccess = "success"
)

const recentLogLimit = 5

// dashboardService assembles the management dashboard from the user and
// audit services.
type dashboardService struct {
	serverMode string
	users      UserServicer
	audit      AuditServicer
}

// NewDashboardService creates a new DashboardServicer for serverMode.
func NewDashboardService(serverMode string, users UserServicer, audit AuditServicer) DashboardServicer {
	return &dashboardService{serverMode: serverMode, users: users, audit: audit}
}

// Environment returns the badge of serverMode. Anything that is not a known
// non-production mode is shown as production.
func Environment(serverMode string) EnvironmentBadge {
	switch serverMode {
	case config.ServerModeLocal, config.ServerModeDevelopment:
		return EnvironmentBadge{Mode: serverMode, Color: BadgeDanger}
	}
	return EnvironmentBadge{Mode: config.ServerModeProduction, Color: BadgeSuccess}
}

// GetDashboard returns the environment badge, the user cards and the most
// recent audit entries.
func (s *dashboardService) GetDashboard(now time.Time) (*Dashboard, error) {
	stats, err := s.users.GetSystemStats(now)
	if err != nil {
		return nil, err
	}

	recent, err := s.audit.ListEntries(LogEntryFilter{}, pagination.PageRequest{Page: 1, PageSize: recentLogLimit})
	if err != nil {
		return nil, err
	}

	todayBadge := ""
	if stats.RegisteredToday > 0 {
		todayBadge = "+" + strconv.FormatInt(stats.RegisteredToday, 10)
	}

	return &Dashboard{
		Environment: Environment(s.serverMode),
		Cards: []DashboardCard{
			{Title: "전체 사용자", Value: stats.Total, Badge: todayBadge},
			{Title: "활성 사용자", Value: stats.Active},
			{Title: "비활성 사용자", Value: stats.Inactive},
			{Title: "스태프", Value: stats.Staff},
			{Title: "이번 주 가입", Value: stats.RegisteredThisWeek},
		},
		RecentLogs: recent.Data,
	}, nil
}

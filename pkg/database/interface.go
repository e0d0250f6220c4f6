package database

import (
	"errors"
	"fmt"
	"os"

	"lead-board-backend/pkg/models"
)

// ErrClientNotFound 客户不存在；调用方据此区分"没查到"和真正的查询失败
var ErrClientNotFound = errors.New("client not found")

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 团队成员管理
	CreateProfile(p *models.Profile) error
	GetProfileByEmail(email string) (*models.Profile, error)
	GetProfileByID(id string) (*models.Profile, error)
	UpdateProfile(p *models.Profile) error
	DeleteProfile(id string) error
	ListProfiles() ([]models.Profile, error)
	// SetProfileSkills replaces the member's user_skills links with the given set.
	SetProfileSkills(profileID string, skillIDs []string) error

	// Skills
	ListSkills() ([]models.Skill, error)
	CreateSkill(s *models.Skill) error
	DeleteSkill(id string) error

	// Clients
	ListClients() ([]models.Client, error)
	// FindClientByNameCompany matches by name+company; returns ErrClientNotFound when no row matches.
	FindClientByNameCompany(name, company string) (*models.Client, error)
	CreateClient(c *models.Client) error

	// Opportunities
	// CreateOpportunity persists the row and its opportunity_skill links from SkillIDs.
	CreateOpportunity(o *models.Opportunity) error
	// ListActiveOpportunities returns the board: every row whose status is not terminal.
	ListActiveOpportunities() ([]models.Opportunity, error)
	GetOpportunity(id string) (*models.Opportunity, error)
	// UpdateOpportunityPartial performs a partial update using the provided patch map.
	// Allowed keys: "summary","urgency","client_id","original_message".
	UpdateOpportunityPartial(id string, patch map[string]interface{}) error
	// SetOpportunityStatus updates status and, when assignee is non-nil, the assignee in one write.
	// Moving to "new" always clears the assignee; cards in that column never carry one.
	SetOpportunityStatus(id string, status models.OpportunityStatus, assigneeID *string) error
	SetOpportunitySkills(id string, skillIDs []string) error
	DeleteOpportunity(id string) error

	// 派单统计：按成员统计 active/completed 机会数（实时计算）
	CountOpportunitiesByAssignee() (map[string]models.AssignmentCounts, error)

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseMemoryDB bool
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	Debug       bool
}

// NewDatabase 根据环境与配置选择数据库实现
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	// 是否在 Vercel 生产环境
	isVercelProduction := isVercelEnvironment()

	if isVercelProduction {
		fmt.Printf("🧭 Detected Vercel production environment\n")

		// Vercel 优先使用 Supabase（避免 IPv6）
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Printf("🚀  Using Supabase REST API (Vercel optimized)\n")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
		}

		// 次选 PostgreSQL
		if config.PostgresDSN != "" {
			fmt.Printf("🌐  Using PostgreSQL in Vercel (may have IPv6 issues)\n")
			return NewPostgresDatabase(config.PostgresDSN)
		}

		// 未配置受支持的数据库，直接失败
		panic("No valid database configured for Vercel environment. Please set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	// 非 Vercel 环境：PostgreSQL > Supabase > 内存数据库
	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Printf("🧰  Using Supabase REST API\n")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
	}

	if config.UseMemoryDB {
		fmt.Printf("🧪  Using in-memory database (development only)\n")
		return NewMemoryDatabase()
	}

	panic("No valid database configuration found. Please configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
}

// isVercelEnvironment 内部检查 Vercel 环境
func isVercelEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}

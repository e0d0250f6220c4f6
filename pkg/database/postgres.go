package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lead-board-backend/pkg/models"

	"github.com/lib/pq"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// 尝试多种连接策略来解决Vercel Lambda的IPv6问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		// 测试连接
		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	// 所有策略都失败了
	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// ================= Profiles =================

// CreateProfile 创建团队成员
func (db *PostgresDatabase) CreateProfile(p *models.Profile) error {
	query := `
        INSERT INTO public.profiles (name, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, p.Name, p.Email, p.Password, p.Role).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if len(p.SkillIDs) > 0 {
		if err := db.SetProfileSkills(p.ID, p.SkillIDs); err != nil {
			return fmt.Errorf("failed to link profile skills: %w", err)
		}
	}
	return nil
}

// GetProfileByEmail 根据邮箱获取成员（登录用，含密码哈希）
func (db *PostgresDatabase) GetProfileByEmail(email string) (*models.Profile, error) {
	query := `
        SELECT id, name, email, COALESCE(password_hash,''), COALESCE(role,''), created_at, updated_at
        FROM public.profiles
        WHERE email = $1
    `
	var p models.Profile
	err := db.db.QueryRow(query, email).Scan(
		&p.ID, &p.Name, &p.Email, &p.Password, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	p.SkillIDs, err = db.profileSkillIDs(p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByID 根据ID获取成员
func (db *PostgresDatabase) GetProfileByID(id string) (*models.Profile, error) {
	query := `
        SELECT id, name, email, COALESCE(role,''), created_at, updated_at
        FROM public.profiles
        WHERE id = $1
    `
	var p models.Profile
	err := db.db.QueryRow(query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.SkillIDs, err = db.profileSkillIDs(p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile 更新成员基本信息（技能另走 SetProfileSkills）
func (db *PostgresDatabase) UpdateProfile(p *models.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile ID is required for update")
	}
	query := `
        UPDATE public.profiles
        SET name = $1,
            email = $2,
            role = $3,
            password_hash = CASE WHEN $4 = '' THEN password_hash ELSE $4 END,
            updated_at = NOW()
        WHERE id = $5
    `
	_, err := db.db.Exec(query, p.Name, p.Email, p.Role, p.Password, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DeleteProfile 删除成员，先清理关联
func (db *PostgresDatabase) DeleteProfile(id string) error {
	if _, err := db.db.Exec(`DELETE FROM public.user_skills WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear profile skills: %w", err)
	}
	// 已分配给该成员的机会退回未分配，而不是连带删除
	if _, err := db.db.Exec(`UPDATE public.opportunities SET assignee_id = NULL, updated_at = NOW() WHERE assignee_id = $1`, id); err != nil {
		return fmt.Errorf("failed to unassign opportunities: %w", err)
	}
	res, err := db.db.Exec(`DELETE FROM public.profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile not found")
	}
	return nil
}

// ListProfiles 列出所有成员及其技能ID
func (db *PostgresDatabase) ListProfiles() ([]models.Profile, error) {
	query := `
        SELECT p.id, p.name, p.email, COALESCE(p.role,''), p.created_at, p.updated_at,
               COALESCE(array_agg(us.skill_id) FILTER (WHERE us.skill_id IS NOT NULL), '{}')
        FROM public.profiles p
        LEFT JOIN public.user_skills us ON us.user_id = p.id
        GROUP BY p.id
        ORDER BY p.name ASC
    `
	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		var p models.Profile
		var skillIDs pq.StringArray
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt, &skillIDs); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.SkillIDs = []string(skillIDs)
		result = append(result, p)
	}
	return result, rows.Err()
}

// SetProfileSkills 重建成员的技能关联
func (db *PostgresDatabase) SetProfileSkills(profileID string, skillIDs []string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM public.user_skills WHERE user_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to clear profile skills: %w", err)
	}
	for _, skillID := range skillIDs {
		if _, err := tx.Exec(`INSERT INTO public.user_skills (user_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, profileID, skillID); err != nil {
			return fmt.Errorf("failed to link skill %s: %w", skillID, err)
		}
	}
	return tx.Commit()
}

// profileSkillIDs 读取成员的技能ID列表（内部方法）
func (db *PostgresDatabase) profileSkillIDs(profileID string) ([]string, error) {
	rows, err := db.db.Query(`SELECT skill_id FROM public.user_skills WHERE user_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile skills: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ================= Skills =================

// ListSkills 列出所有技能
func (db *PostgresDatabase) ListSkills() ([]models.Skill, error) {
	rows, err := db.db.Query(`SELECT id, name, created_at FROM public.skills ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var result []models.Skill
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// CreateSkill 创建技能
func (db *PostgresDatabase) CreateSkill(s *models.Skill) error {
	query := `
        INSERT INTO public.skills (name, created_at)
        VALUES ($1, NOW())
        RETURNING id, created_at
    `
	if err := db.db.QueryRow(query, s.Name).Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}
	return nil
}

// DeleteSkill 删除技能，连带清理双侧关联
func (db *PostgresDatabase) DeleteSkill(id string) error {
	if _, err := db.db.Exec(`DELETE FROM public.user_skills WHERE skill_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear member links: %w", err)
	}
	if _, err := db.db.Exec(`DELETE FROM public.opportunity_skill WHERE skill_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear opportunity links: %w", err)
	}
	res, err := db.db.Exec(`DELETE FROM public.skills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete skill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("skill not found")
	}
	return nil
}

// ================= Clients =================

// ListClients 列出所有客户
func (db *PostgresDatabase) ListClients() ([]models.Client, error) {
	rows, err := db.db.Query(`SELECT id, name, COALESCE(company,''), created_at FROM public.clients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var result []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Company, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// FindClientByNameCompany 按姓名+公司查找客户
func (db *PostgresDatabase) FindClientByNameCompany(name, company string) (*models.Client, error) {
	query := `
        SELECT id, name, COALESCE(company,''), created_at
        FROM public.clients
        WHERE lower(name) = lower($1) AND lower(COALESCE(company,'')) = lower($2)
        LIMIT 1
    `
	var c models.Client
	err := db.db.QueryRow(query, name, company).Scan(&c.ID, &c.Name, &c.Company, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return &c, nil
}

// CreateClient 创建客户
func (db *PostgresDatabase) CreateClient(c *models.Client) error {
	query := `
        INSERT INTO public.clients (name, company, created_at)
        VALUES ($1, $2, NOW())
        RETURNING id, created_at
    `
	if err := db.db.QueryRow(query, c.Name, c.Company).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// ================= Opportunities =================

const opportunityColumns = `
    o.id, o.client_id, o.original_message, o.summary, o.urgency, o.status,
    o.assignee_id, o.created_at, o.updated_at,
    COALESCE(array_agg(os.skill_id) FILTER (WHERE os.skill_id IS NOT NULL), '{}')
`

// CreateOpportunity 创建机会及其技能关联
func (db *PostgresDatabase) CreateOpportunity(o *models.Opportunity) error {
	if o.Status == "" {
		o.Status = models.StatusNew
	}
	if o.Urgency == "" {
		o.Urgency = models.UrgencyMedium
	}
	query := `
        INSERT INTO public.opportunities (client_id, original_message, summary, urgency, status, assignee_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, o.ClientID, o.OriginalMessage, o.Summary, string(o.Urgency), string(o.Status), o.AssigneeID).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	if len(o.SkillIDs) > 0 {
		if err := db.SetOpportunitySkills(o.ID, o.SkillIDs); err != nil {
			return fmt.Errorf("failed to link opportunity skills: %w", err)
		}
	}
	return nil
}

// ListActiveOpportunities 看板列表：排除终态（cancelled/archived）
func (db *PostgresDatabase) ListActiveOpportunities() ([]models.Opportunity, error) {
	query := `
        SELECT ` + opportunityColumns + `
        FROM public.opportunities o
        LEFT JOIN public.opportunity_skill os ON os.opportunity_id = o.id
        WHERE o.status NOT IN ('cancelled', 'archived')
        GROUP BY o.id
        ORDER BY o.created_at DESC
    `
	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var result []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

// GetOpportunity 获取单个机会
func (db *PostgresDatabase) GetOpportunity(id string) (*models.Opportunity, error) {
	query := `
        SELECT ` + opportunityColumns + `
        FROM public.opportunities o
        LEFT JOIN public.opportunity_skill os ON os.opportunity_id = o.id
        WHERE o.id = $1
        GROUP BY o.id
    `
	rows, err := db.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("opportunity not found")
	}
	return scanOpportunity(rows)
}

// scanOpportunity 扫描机会行（内部方法）
func scanOpportunity(rows *sql.Rows) (*models.Opportunity, error) {
	var o models.Opportunity
	var assignee sql.NullString
	var urgency, status string
	var skillIDs pq.StringArray
	err := rows.Scan(
		&o.ID, &o.ClientID, &o.OriginalMessage, &o.Summary, &urgency, &status,
		&assignee, &o.CreatedAt, &o.UpdatedAt, &skillIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan opportunity: %w", err)
	}
	o.Urgency = models.Urgency(urgency)
	o.Status = models.OpportunityStatus(status)
	if assignee.Valid {
		o.AssigneeID = &assignee.String
	}
	o.SkillIDs = []string(skillIDs)
	return &o, nil
}

// UpdateOpportunityPartial 按补丁更新机会字段
func (db *PostgresDatabase) UpdateOpportunityPartial(id string, patch map[string]interface{}) error {
	allowed := map[string]bool{"summary": true, "urgency": true, "client_id": true, "original_message": true}
	sets := []string{}
	args := []interface{}{}
	i := 1
	for key, value := range patch {
		if !allowed[key] {
			return fmt.Errorf("field %q is not updatable", key)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", key, i))
		args = append(args, value)
		i++
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE public.opportunities SET %s, updated_at = NOW() WHERE id = $%d`, strings.Join(sets, ", "), i)
	res, err := db.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("opportunity not found")
	}
	return nil
}

// SetOpportunityStatus 更新状态（可同时写入指派人）
func (db *PostgresDatabase) SetOpportunityStatus(id string, status models.OpportunityStatus, assigneeID *string) error {
	var res sql.Result
	var err error
	switch {
	case status == models.StatusNew:
		// new列的卡片不能带负责人
		res, err = db.db.Exec(`UPDATE public.opportunities SET status = $1, assignee_id = NULL, updated_at = NOW() WHERE id = $2`, string(status), id)
	case assigneeID != nil:
		res, err = db.db.Exec(`UPDATE public.opportunities SET status = $1, assignee_id = $2, updated_at = NOW() WHERE id = $3`, string(status), *assigneeID, id)
	default:
		res, err = db.db.Exec(`UPDATE public.opportunities SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("opportunity not found")
	}
	return nil
}

// SetOpportunitySkills 重建机会的技能关联
func (db *PostgresDatabase) SetOpportunitySkills(id string, skillIDs []string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM public.opportunity_skill WHERE opportunity_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear opportunity skills: %w", err)
	}
	for _, skillID := range skillIDs {
		if _, err := tx.Exec(`INSERT INTO public.opportunity_skill (opportunity_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, skillID); err != nil {
			return fmt.Errorf("failed to link skill %s: %w", skillID, err)
		}
	}
	return tx.Commit()
}

// DeleteOpportunity 显式删除机会（看板上唯一的硬删除入口）
func (db *PostgresDatabase) DeleteOpportunity(id string) error {
	if _, err := db.db.Exec(`DELETE FROM public.opportunity_skill WHERE opportunity_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear opportunity skills: %w", err)
	}
	res, err := db.db.Exec(`DELETE FROM public.opportunities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("opportunity not found")
	}
	return nil
}

// CountOpportunitiesByAssignee 按成员统计 active/completed 数量
func (db *PostgresDatabase) CountOpportunitiesByAssignee() (map[string]models.AssignmentCounts, error) {
	query := `
        SELECT assignee_id,
               COUNT(*) FILTER (WHERE status = 'assigned'),
               COUNT(*) FILTER (WHERE status = 'done')
        FROM public.opportunities
        WHERE assignee_id IS NOT NULL
        GROUP BY assignee_id
    `
	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count opportunities: %w", err)
	}
	defer rows.Close()

	counts := map[string]models.AssignmentCounts{}
	for rows.Next() {
		var assigneeID string
		var c models.AssignmentCounts
		if err := rows.Scan(&assigneeID, &c.Active, &c.Completed); err != nil {
			return nil, err
		}
		counts[assigneeID] = c
	}
	return counts, rows.Err()
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

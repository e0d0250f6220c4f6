package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lead-board-backend/pkg/models"
)

// SupabaseDatabase Supabase数据库实现
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(u, key string) DatabaseInterface {
	// 确保URL格式正确
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}

	return &SupabaseDatabase{
		baseURL: u,
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	reqURL := db.baseURL + "/rest/v1" + endpoint
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// firstRowID 从返回的representation里取出生成的ID（内部方法）
func firstRowID(data []byte) (string, bool) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		if id, ok := rows[0]["id"].(string); ok {
			return id, true
		}
	}
	return "", false
}

// ================= Profiles =================

// supabaseProfile 带嵌套 user_skills 的行结构（内部）
type supabaseProfile struct {
	models.Profile
	PasswordHash string `json:"password_hash"`
	UserSkills   []struct {
		SkillID string `json:"skill_id"`
	} `json:"user_skills"`
}

func (sp *supabaseProfile) toProfile() models.Profile {
	p := sp.Profile
	p.Password = sp.PasswordHash
	p.SkillIDs = []string{}
	for _, link := range sp.UserSkills {
		p.SkillIDs = append(p.SkillIDs, link.SkillID)
	}
	return p
}

// CreateProfile 创建团队成员
func (db *SupabaseDatabase) CreateProfile(p *models.Profile) error {
	payload := map[string]interface{}{
		"name":          p.Name,
		"email":         p.Email,
		"password_hash": p.Password,
		"role":          p.Role,
	}
	data, err := db.makeRequest("POST", "/profiles", payload)
	if err != nil {
		return err
	}
	if id, ok := firstRowID(data); ok {
		p.ID = id
	}
	if len(p.SkillIDs) > 0 {
		if err := db.SetProfileSkills(p.ID, p.SkillIDs); err != nil {
			return err
		}
	}
	fmt.Printf("👤 Created profile %s via Supabase REST\n", p.Email)
	return nil
}

// GetProfileByEmail 根据邮箱获取成员（含密码哈希）
func (db *SupabaseDatabase) GetProfileByEmail(email string) (*models.Profile, error) {
	endpoint := "/profiles?email=eq." + url.QueryEscape(email) + "&select=*,user_skills(skill_id)"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []supabaseProfile
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("profile not found")
	}
	p := rows[0].toProfile()
	return &p, nil
}

// GetProfileByID 根据ID获取成员
func (db *SupabaseDatabase) GetProfileByID(id string) (*models.Profile, error) {
	endpoint := "/profiles?id=eq." + url.QueryEscape(id) + "&select=*,user_skills(skill_id)"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []supabaseProfile
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("profile not found")
	}
	p := rows[0].toProfile()
	p.Password = "" // 非登录路径不携带哈希
	return &p, nil
}

// UpdateProfile 更新成员基本信息
func (db *SupabaseDatabase) UpdateProfile(p *models.Profile) error {
	payload := map[string]interface{}{
		"name":       p.Name,
		"email":      p.Email,
		"role":       p.Role,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	// 密码只有明确换新时才覆盖
	if p.Password != "" {
		payload["password_hash"] = p.Password
	}
	_, err := db.makeRequest("PATCH", "/profiles?id=eq."+url.QueryEscape(p.ID), payload)
	return err
}

// DeleteProfile 删除成员，先清理关联
func (db *SupabaseDatabase) DeleteProfile(id string) error {
	if _, err := db.makeRequest("DELETE", "/user_skills?user_id=eq."+url.QueryEscape(id), nil); err != nil {
		return err
	}
	// 已分配的机会退回未分配
	if _, err := db.makeRequest("PATCH", "/opportunities?assignee_id=eq."+url.QueryEscape(id), map[string]interface{}{
		"assignee_id": nil,
		"updated_at":  time.Now().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	_, err := db.makeRequest("DELETE", "/profiles?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ListProfiles 列出所有成员及技能
func (db *SupabaseDatabase) ListProfiles() ([]models.Profile, error) {
	data, err := db.makeRequest("GET", "/profiles?select=*,user_skills(skill_id)&order=name.asc", nil)
	if err != nil {
		return nil, err
	}
	var rows []supabaseProfile
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	result := make([]models.Profile, 0, len(rows))
	for i := range rows {
		p := rows[i].toProfile()
		p.Password = ""
		result = append(result, p)
	}
	return result, nil
}

// SetProfileSkills 重建成员技能关联（先删后插）
func (db *SupabaseDatabase) SetProfileSkills(profileID string, skillIDs []string) error {
	if _, err := db.makeRequest("DELETE", "/user_skills?user_id=eq."+url.QueryEscape(profileID), nil); err != nil {
		return err
	}
	if len(skillIDs) == 0 {
		return nil
	}
	links := make([]map[string]interface{}, 0, len(skillIDs))
	for _, skillID := range skillIDs {
		links = append(links, map[string]interface{}{
			"user_id":  profileID,
			"skill_id": skillID,
		})
	}
	_, err := db.makeRequest("POST", "/user_skills", links)
	return err
}

// ================= Skills =================

// ListSkills 列出所有技能
func (db *SupabaseDatabase) ListSkills() ([]models.Skill, error) {
	data, err := db.makeRequest("GET", "/skills?select=*&order=name.asc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Skill
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateSkill 创建技能
func (db *SupabaseDatabase) CreateSkill(s *models.Skill) error {
	data, err := db.makeRequest("POST", "/skills", map[string]interface{}{"name": s.Name})
	if err != nil {
		return err
	}
	if id, ok := firstRowID(data); ok {
		s.ID = id
	}
	return nil
}

// DeleteSkill 删除技能，连带清理双侧关联
func (db *SupabaseDatabase) DeleteSkill(id string) error {
	if _, err := db.makeRequest("DELETE", "/user_skills?skill_id=eq."+url.QueryEscape(id), nil); err != nil {
		return err
	}
	if _, err := db.makeRequest("DELETE", "/opportunity_skill?skill_id=eq."+url.QueryEscape(id), nil); err != nil {
		return err
	}
	_, err := db.makeRequest("DELETE", "/skills?id=eq."+url.QueryEscape(id), nil)
	return err
}

// ================= Clients =================

// ListClients 列出所有客户
func (db *SupabaseDatabase) ListClients() ([]models.Client, error) {
	data, err := db.makeRequest("GET", "/clients?select=*&order=name.asc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Client
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindClientByNameCompany 按姓名+公司查找客户（PostgREST ilike 做大小写不敏感匹配）
func (db *SupabaseDatabase) FindClientByNameCompany(name, company string) (*models.Client, error) {
	endpoint := "/clients?name=ilike." + url.QueryEscape(name) + "&company=ilike." + url.QueryEscape(company) + "&select=*&limit=1"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Client
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse clients response: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrClientNotFound
	}
	return &rows[0], nil
}

// CreateClient 创建客户
func (db *SupabaseDatabase) CreateClient(c *models.Client) error {
	data, err := db.makeRequest("POST", "/clients", map[string]interface{}{
		"name":    c.Name,
		"company": c.Company,
	})
	if err != nil {
		return err
	}
	if id, ok := firstRowID(data); ok {
		c.ID = id
	}
	return nil
}

// ================= Opportunities =================

// supabaseOpportunity 带嵌套 opportunity_skill 的行结构（内部）
type supabaseOpportunity struct {
	models.Opportunity
	OpportunitySkill []struct {
		SkillID string `json:"skill_id"`
	} `json:"opportunity_skill"`
}

func (so *supabaseOpportunity) toOpportunity() models.Opportunity {
	o := so.Opportunity
	o.SkillIDs = []string{}
	for _, link := range so.OpportunitySkill {
		o.SkillIDs = append(o.SkillIDs, link.SkillID)
	}
	return o
}

// CreateOpportunity 创建机会及其技能关联
func (db *SupabaseDatabase) CreateOpportunity(o *models.Opportunity) error {
	if o.Status == "" {
		o.Status = models.StatusNew
	}
	if o.Urgency == "" {
		o.Urgency = models.UrgencyMedium
	}
	payload := map[string]interface{}{
		"client_id":        o.ClientID,
		"original_message": o.OriginalMessage,
		"summary":          o.Summary,
		"urgency":          string(o.Urgency),
		"status":           string(o.Status),
	}
	if o.AssigneeID != nil {
		payload["assignee_id"] = *o.AssigneeID
	}
	data, err := db.makeRequest("POST", "/opportunities", payload)
	if err != nil {
		return err
	}
	if id, ok := firstRowID(data); ok {
		o.ID = id
	}
	if len(o.SkillIDs) > 0 {
		if err := db.SetOpportunitySkills(o.ID, o.SkillIDs); err != nil {
			return err
		}
	}
	fmt.Printf("📋 Created opportunity %s via Supabase REST (urgency: %s)\n", o.ID, o.Urgency)
	return nil
}

// ListActiveOpportunities 看板列表：排除终态
func (db *SupabaseDatabase) ListActiveOpportunities() ([]models.Opportunity, error) {
	// PostgREST: status=not.in.(cancelled,archived)
	endpoint := "/opportunities?status=not.in.(cancelled,archived)&select=*,opportunity_skill(skill_id)&order=created_at.desc"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	var rows []supabaseOpportunity
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse opportunities response: %w", err)
	}
	result := make([]models.Opportunity, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toOpportunity())
	}
	return result, nil
}

// GetOpportunity 获取单个机会
func (db *SupabaseDatabase) GetOpportunity(id string) (*models.Opportunity, error) {
	endpoint := "/opportunities?id=eq." + url.QueryEscape(id) + "&select=*,opportunity_skill(skill_id)"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []supabaseOpportunity
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("opportunity not found")
	}
	o := rows[0].toOpportunity()
	return &o, nil
}

// UpdateOpportunityPartial 按补丁更新机会字段
func (db *SupabaseDatabase) UpdateOpportunityPartial(id string, patch map[string]interface{}) error {
	allowed := map[string]bool{"summary": true, "urgency": true, "client_id": true, "original_message": true}
	payload := map[string]interface{}{}
	for key, value := range patch {
		if !allowed[key] {
			return fmt.Errorf("field %q is not updatable", key)
		}
		payload[key] = value
	}
	if len(payload) == 0 {
		return nil
	}
	payload["updated_at"] = time.Now().Format(time.RFC3339)
	_, err := db.makeRequest("PATCH", "/opportunities?id=eq."+url.QueryEscape(id), payload)
	return err
}

// SetOpportunityStatus 更新状态（可同时写入指派人）
func (db *SupabaseDatabase) SetOpportunityStatus(id string, status models.OpportunityStatus, assigneeID *string) error {
	payload := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if status == models.StatusNew {
		// new列的卡片不能带负责人
		payload["assignee_id"] = nil
	} else if assigneeID != nil {
		payload["assignee_id"] = *assigneeID
	}
	_, err := db.makeRequest("PATCH", "/opportunities?id=eq."+url.QueryEscape(id), payload)
	return err
}

// SetOpportunitySkills 重建机会技能关联（先删后插）
func (db *SupabaseDatabase) SetOpportunitySkills(id string, skillIDs []string) error {
	if _, err := db.makeRequest("DELETE", "/opportunity_skill?opportunity_id=eq."+url.QueryEscape(id), nil); err != nil {
		return err
	}
	if len(skillIDs) == 0 {
		return nil
	}
	links := make([]map[string]interface{}, 0, len(skillIDs))
	for _, skillID := range skillIDs {
		links = append(links, map[string]interface{}{
			"opportunity_id": id,
			"skill_id":       skillID,
		})
	}
	_, err := db.makeRequest("POST", "/opportunity_skill", links)
	return err
}

// DeleteOpportunity 显式删除机会
func (db *SupabaseDatabase) DeleteOpportunity(id string) error {
	if _, err := db.makeRequest("DELETE", "/opportunity_skill?opportunity_id=eq."+url.QueryEscape(id), nil); err != nil {
		return err
	}
	if _, err := db.makeRequest("DELETE", "/opportunities?id=eq."+url.QueryEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	fmt.Printf("🗑️ Deleted opportunity %s\n", id)
	return nil
}

// CountOpportunitiesByAssignee 按成员统计 active/completed 数量
// PostgREST 不直接支持 FILTER 聚合，拉回已分配行在内存里计数（数据量是看板级别，足够小）
func (db *SupabaseDatabase) CountOpportunitiesByAssignee() (map[string]models.AssignmentCounts, error) {
	endpoint := "/opportunities?assignee_id=not.is.null&select=assignee_id,status"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment counts: %w", err)
	}
	var rows []struct {
		AssigneeID string `json:"assignee_id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse counts response: %w", err)
	}
	counts := map[string]models.AssignmentCounts{}
	for _, row := range rows {
		c := counts[row.AssigneeID]
		switch models.OpportunityStatus(row.Status) {
		case models.StatusAssigned:
			c.Active++
		case models.StatusDone:
			c.Completed++
		}
		counts[row.AssigneeID] = c
	}
	return counts, nil
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck() error {
	// 发送简单的查询来检查连接
	_, err := db.makeRequest("GET", "/", nil)
	return err
}

// Close 关闭连接
func (db *SupabaseDatabase) Close() error {
	// HTTP客户端无需显式关闭
	return nil
}

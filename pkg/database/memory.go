package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lead-board-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase 内存数据库实现（开发/测试用，不持久化）
type MemoryDatabase struct {
	mu            sync.RWMutex
	profiles      map[string]models.Profile
	skills        map[string]models.Skill
	clients       map[string]models.Client
	opportunities map[string]models.Opportunity
	userSkills    map[string][]string // profile id -> skill ids
	oppSkills     map[string][]string // opportunity id -> skill ids
}

// NewMemoryDatabase 创建内存数据库实例
func NewMemoryDatabase() DatabaseInterface {
	return &MemoryDatabase{
		profiles:      make(map[string]models.Profile),
		skills:        make(map[string]models.Skill),
		clients:       make(map[string]models.Client),
		opportunities: make(map[string]models.Opportunity),
		userSkills:    make(map[string][]string),
		oppSkills:     make(map[string][]string),
	}
}

// ================= Profiles =================

// CreateProfile 创建团队成员
func (db *MemoryDatabase) CreateProfile(p *models.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("email already registered")
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	db.profiles[p.ID] = *p
	db.userSkills[p.ID] = append([]string{}, p.SkillIDs...)
	return nil
}

// GetProfileByEmail 根据邮箱获取成员
func (db *MemoryDatabase) GetProfileByEmail(email string) (*models.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, p := range db.profiles {
		if strings.EqualFold(p.Email, email) {
			out := p
			out.SkillIDs = append([]string{}, db.userSkills[p.ID]...)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("profile not found")
}

// GetProfileByID 根据ID获取成员
func (db *MemoryDatabase) GetProfileByID(id string) (*models.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p, ok := db.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile not found")
	}
	out := p
	out.SkillIDs = append([]string{}, db.userSkills[id]...)
	return &out, nil
}

// UpdateProfile 更新成员基本信息
func (db *MemoryDatabase) UpdateProfile(p *models.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.profiles[p.ID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	existing.Name = p.Name
	existing.Email = p.Email
	existing.Role = p.Role
	if p.Password != "" {
		existing.Password = p.Password
	}
	existing.UpdatedAt = time.Now()
	db.profiles[p.ID] = existing
	return nil
}

// DeleteProfile 删除成员，已分配的机会退回未分配
func (db *MemoryDatabase) DeleteProfile(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.profiles[id]; !ok {
		return fmt.Errorf("profile not found")
	}
	delete(db.profiles, id)
	delete(db.userSkills, id)
	for oid, o := range db.opportunities {
		if o.AssigneeID != nil && *o.AssigneeID == id {
			o.AssigneeID = nil
			o.UpdatedAt = time.Now()
			db.opportunities[oid] = o
		}
	}
	return nil
}

// ListProfiles 列出所有成员（按姓名排序）
func (db *MemoryDatabase) ListProfiles() ([]models.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.Profile, 0, len(db.profiles))
	for id, p := range db.profiles {
		out := p
		out.Password = ""
		out.SkillIDs = append([]string{}, db.userSkills[id]...)
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SetProfileSkills 重建成员技能关联
func (db *MemoryDatabase) SetProfileSkills(profileID string, skillIDs []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.profiles[profileID]; !ok {
		return fmt.Errorf("profile not found")
	}
	db.userSkills[profileID] = append([]string{}, skillIDs...)
	return nil
}

// ================= Skills =================

// ListSkills 列出所有技能（按名称排序）
func (db *MemoryDatabase) ListSkills() ([]models.Skill, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.Skill, 0, len(db.skills))
	for _, s := range db.skills {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateSkill 创建技能
func (db *MemoryDatabase) CreateSkill(s *models.Skill) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()
	db.skills[s.ID] = *s
	return nil
}

// DeleteSkill 删除技能，连带清理双侧关联
func (db *MemoryDatabase) DeleteSkill(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.skills[id]; !ok {
		return fmt.Errorf("skill not found")
	}
	delete(db.skills, id)
	for pid, ids := range db.userSkills {
		db.userSkills[pid] = removeString(ids, id)
	}
	for oid, ids := range db.oppSkills {
		db.oppSkills[oid] = removeString(ids, id)
	}
	return nil
}

func removeString(ids []string, target string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// ================= Clients =================

// ListClients 列出所有客户（按名称排序）
func (db *MemoryDatabase) ListClients() ([]models.Client, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.Client, 0, len(db.clients))
	for _, c := range db.clients {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// FindClientByNameCompany 按姓名+公司查找客户（大小写不敏感）
func (db *MemoryDatabase) FindClientByNameCompany(name, company string) (*models.Client, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, c := range db.clients {
		if strings.EqualFold(c.Name, name) && strings.EqualFold(c.Company, company) {
			out := c
			return &out, nil
		}
	}
	return nil, ErrClientNotFound
}

// CreateClient 创建客户
func (db *MemoryDatabase) CreateClient(c *models.Client) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	db.clients[c.ID] = *c
	return nil
}

// ================= Opportunities =================

// CreateOpportunity 创建机会及其技能关联
func (db *MemoryDatabase) CreateOpportunity(o *models.Opportunity) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = models.StatusNew
	}
	if o.Urgency == "" {
		o.Urgency = models.UrgencyMedium
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	db.opportunities[o.ID] = *o
	db.oppSkills[o.ID] = append([]string{}, o.SkillIDs...)
	return nil
}

// ListActiveOpportunities 看板列表：排除终态，新→旧排序
func (db *MemoryDatabase) ListActiveOpportunities() ([]models.Opportunity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []models.Opportunity{}
	for id, o := range db.opportunities {
		if o.Status.IsTerminal() {
			continue
		}
		out := o
		out.SkillIDs = append([]string{}, db.oppSkills[id]...)
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// GetOpportunity 获取单个机会
func (db *MemoryDatabase) GetOpportunity(id string) (*models.Opportunity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	o, ok := db.opportunities[id]
	if !ok {
		return nil, fmt.Errorf("opportunity not found")
	}
	out := o
	out.SkillIDs = append([]string{}, db.oppSkills[id]...)
	return &out, nil
}

// UpdateOpportunityPartial 按补丁更新机会字段
func (db *MemoryDatabase) UpdateOpportunityPartial(id string, patch map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	o, ok := db.opportunities[id]
	if !ok {
		return fmt.Errorf("opportunity not found")
	}
	for key, value := range patch {
		str, _ := value.(string)
		switch key {
		case "summary":
			o.Summary = str
		case "urgency":
			o.Urgency = models.Urgency(str)
		case "client_id":
			o.ClientID = str
		case "original_message":
			o.OriginalMessage = str
		default:
			return fmt.Errorf("field %q is not updatable", key)
		}
	}
	o.UpdatedAt = time.Now()
	db.opportunities[id] = o
	return nil
}

// SetOpportunityStatus 更新状态（可同时写入指派人）
func (db *MemoryDatabase) SetOpportunityStatus(id string, status models.OpportunityStatus, assigneeID *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	o, ok := db.opportunities[id]
	if !ok {
		return fmt.Errorf("opportunity not found")
	}
	o.Status = status
	if status == models.StatusNew {
		// new列的卡片不能带负责人
		o.AssigneeID = nil
	} else if assigneeID != nil {
		o.AssigneeID = assigneeID
	}
	o.UpdatedAt = time.Now()
	db.opportunities[id] = o
	return nil
}

// SetOpportunitySkills 重建机会技能关联
func (db *MemoryDatabase) SetOpportunitySkills(id string, skillIDs []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.opportunities[id]; !ok {
		return fmt.Errorf("opportunity not found")
	}
	db.oppSkills[id] = append([]string{}, skillIDs...)
	return nil
}

// DeleteOpportunity 显式删除机会
func (db *MemoryDatabase) DeleteOpportunity(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.opportunities[id]; !ok {
		return fmt.Errorf("opportunity not found")
	}
	delete(db.opportunities, id)
	delete(db.oppSkills, id)
	return nil
}

// CountOpportunitiesByAssignee 按成员统计 active/completed 数量
func (db *MemoryDatabase) CountOpportunitiesByAssignee() (map[string]models.AssignmentCounts, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	counts := map[string]models.AssignmentCounts{}
	for _, o := range db.opportunities {
		if o.AssigneeID == nil {
			continue
		}
		c := counts[*o.AssigneeID]
		switch o.Status {
		case models.StatusAssigned:
			c.Active++
		case models.StatusDone:
			c.Completed++
		}
		counts[*o.AssigneeID] = c
	}
	return counts, nil
}

// HealthCheck 健康检查
func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close 关闭连接
func (db *MemoryDatabase) Close() error {
	return nil
}

package ai

import (
	"fmt"
	"strings"
	"time"

	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"

	gocache "github.com/patrickmn/go-cache"
)

const skillCacheKey = "skills:all"

// SkillResolver maps the model's suggested skill names onto Skill rows,
// creating rows for genuine misses. The roster is cached briefly so bursts of
// intakes don't hammer the skills table.
type SkillResolver struct {
	db    database.DatabaseInterface
	cache *gocache.Cache
}

// NewSkillResolver 创建技能解析器
func NewSkillResolver(db database.DatabaseInterface) *SkillResolver {
	return &SkillResolver{
		db:    db,
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

// Resolve 把建议的技能名解析为技能记录；未命中的创建新记录
func (r *SkillResolver) Resolve(names []string) ([]models.Skill, error) {
	existing, err := r.cachedSkills()
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}

	var resolved []models.Skill
	seen := map[string]bool{}
	created := false

	for _, name := range names {
		normalized := NormalizeSkillName(name)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		if match, ok := matchSkill(normalized, existing); ok {
			resolved = append(resolved, match)
			continue
		}

		// 真正的未命中才建新记录
		skill := models.Skill{Name: strings.TrimSpace(name)}
		if err := r.db.CreateSkill(&skill); err != nil {
			return nil, fmt.Errorf("failed to create skill %q: %w", name, err)
		}
		existing = append(existing, skill)
		resolved = append(resolved, skill)
		created = true
	}

	if created {
		r.cache.Delete(skillCacheKey)
	}
	return resolved, nil
}

// cachedSkills 带TTL缓存的技能列表
func (r *SkillResolver) cachedSkills() ([]models.Skill, error) {
	if cached, ok := r.cache.Get(skillCacheKey); ok {
		return cached.([]models.Skill), nil
	}
	skills, err := r.db.ListSkills()
	if err != nil {
		return nil, err
	}
	r.cache.Set(skillCacheKey, skills, gocache.DefaultExpiration)
	return skills, nil
}

// matchSkill 模糊匹配：先做归一化后的精确比较，再做包含关系兜底
func matchSkill(normalized string, skills []models.Skill) (models.Skill, bool) {
	for _, s := range skills {
		if NormalizeSkillName(s.Name) == normalized {
			return s, true
		}
	}
	for _, s := range skills {
		existing := NormalizeSkillName(s.Name)
		if existing == "" {
			continue
		}
		if strings.Contains(existing, normalized) || strings.Contains(normalized, existing) {
			return s, true
		}
	}
	return models.Skill{}, false
}

// NormalizeSkillName lowercases and strips spaces, hyphens and underscores so
// "Front-End " and "frontend" compare equal.
func NormalizeSkillName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lead-board-backend/pkg/config"
	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
	"lead-board-backend/pkg/utils"
)

// TeamHandler 团队成员处理器
type TeamHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewTeamHandler 创建团队处理器
func NewTeamHandler(cfg *config.Config, db database.DatabaseInterface) *TeamHandler {
	return &TeamHandler{
		config: cfg,
		db:     db,
	}
}

// List 返回全部成员，带实时派单统计
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	roster, err := buildRoster(h.db)
	if err != nil {
		fmt.Printf("❌ Team list: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load team")
		return
	}

	utils.WriteSuccessResponse(w, roster)
}

// MemberRequest 创建/更新成员请求
type MemberRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     string   `json:"role,omitempty"`
	Password string   `json:"password,omitempty"`
	SkillIDs []string `json:"skill_ids,omitempty"`
}

// Create 新建团队成员
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" {
		utils.WriteBadRequestResponse(w, "Name is required")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteBadRequestResponse(w, "A valid email is required")
		return
	}

	if existing, err := h.db.GetProfileByEmail(req.Email); err == nil && existing != nil {
		utils.WriteConflictResponse(w, "Email already in use")
		return
	}

	profile := &models.Profile{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// 管理端创建时密码可选，留空则该成员需通过注册流程设置
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			utils.WriteBadRequestResponse(w, err.Error())
			return
		}
		profile.Password = hash
	}

	if err := h.db.CreateProfile(profile); err != nil {
		fmt.Printf("❌ Team create: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create team member")
		return
	}

	if len(req.SkillIDs) > 0 {
		if err := h.db.SetProfileSkills(profile.ID, req.SkillIDs); err != nil {
			fmt.Printf("❌ Team create: failed to set skills: %v\n", err)
			utils.WriteInternalServerErrorResponse(w, "Failed to set member skills")
			return
		}
		profile.SkillIDs = req.SkillIDs
	}

	fmt.Printf("✅ Team member %s created\n", profile.ID)
	utils.WriteCreatedResponse(w, profile)
}

// Get 获取单个成员（带统计）
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.db.GetProfileByID(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Team member not found")
		return
	}

	counts, err := h.db.CountOpportunitiesByAssignee()
	if err != nil {
		fmt.Printf("❌ Team get: counting failed: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load member stats")
		return
	}

	c := counts[profile.ID]
	utils.WriteSuccessResponse(w, models.ProfileWithStats{
		Profile:        *profile,
		ActiveCount:    c.Active,
		CompletedCount: c.Completed,
	})
}

// Update 更新成员信息与技能
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.db.GetProfileByID(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Team member not found")
		return
	}

	var req MemberRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		profile.Name = name
	}
	if email := strings.TrimSpace(strings.ToLower(req.Email)); email != "" && email != profile.Email {
		if existing, err := h.db.GetProfileByEmail(email); err == nil && existing != nil && existing.ID != id {
			utils.WriteConflictResponse(w, "Email already in use")
			return
		}
		profile.Email = email
	}
	if req.Role != "" {
		profile.Role = req.Role
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			utils.WriteBadRequestResponse(w, err.Error())
			return
		}
		profile.Password = hash
	}
	profile.UpdatedAt = time.Now()

	if err := h.db.UpdateProfile(profile); err != nil {
		fmt.Printf("❌ Team update %s: %v\n", id, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to update team member")
		return
	}

	if req.SkillIDs != nil {
		if err := h.db.SetProfileSkills(id, req.SkillIDs); err != nil {
			fmt.Printf("❌ Team update %s: failed to set skills: %v\n", id, err)
			utils.WriteInternalServerErrorResponse(w, "Failed to update member skills")
			return
		}
	}

	updated, err := h.db.GetProfileByID(id)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload team member")
		return
	}

	utils.WriteSuccessResponse(w, updated)
}

// Delete 移除成员；其名下机会回到未指派状态而不是被删除
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.db.GetProfileByID(id); err != nil {
		utils.WriteNotFoundResponse(w, "Team member not found")
		return
	}

	if err := h.db.DeleteProfile(id); err != nil {
		fmt.Printf("❌ Team delete %s: %v\n", id, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to delete team member")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Team member removed",
	})
}

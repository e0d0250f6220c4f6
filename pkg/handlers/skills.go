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

// SkillHandler 技能字典处理器
type SkillHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewSkillHandler 创建技能处理器
func NewSkillHandler(cfg *config.Config, db database.DatabaseInterface) *SkillHandler {
	return &SkillHandler{
		config: cfg,
		db:     db,
	}
}

// List 列出全部技能
func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	skills, err := h.db.ListSkills()
	if err != nil {
		fmt.Printf("❌ Skill list: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load skills")
		return
	}

	utils.WriteSuccessResponse(w, skills)
}

// Create 手动创建技能（入库分析也会自动建档）
func (h *SkillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteBadRequestResponse(w, "Name is required")
		return
	}

	// 避免重名（大小写不敏感）
	existing, err := h.db.ListSkills()
	if err == nil {
		for _, s := range existing {
			if strings.EqualFold(s.Name, req.Name) {
				utils.WriteConflictResponse(w, "Skill already exists")
				return
			}
		}
	}

	skill := &models.Skill{
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := h.db.CreateSkill(skill); err != nil {
		fmt.Printf("❌ Skill create: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create skill")
		return
	}

	utils.WriteCreatedResponse(w, skill)
}

// Delete 删除技能并清理与成员、机会的关联
func (h *SkillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteSkill(id); err != nil {
		fmt.Printf("❌ Skill delete %s: %v\n", id, err)
		utils.WriteNotFoundResponse(w, "Skill not found")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Skill deleted",
	})
}

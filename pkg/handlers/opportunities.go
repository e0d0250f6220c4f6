package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lead-board-backend/pkg/ai"
	"lead-board-backend/pkg/config"
	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/middleware"
	"lead-board-backend/pkg/models"
	"lead-board-backend/pkg/utils"
	"lead-board-backend/pkg/workflow"
)

// OpportunityHandler 机会看板处理器
type OpportunityHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	analyzer ai.Analyzer
	skills   *ai.SkillResolver
}

// NewOpportunityHandler 创建机会处理器
func NewOpportunityHandler(cfg *config.Config, db database.DatabaseInterface, analyzer ai.Analyzer) *OpportunityHandler {
	return &OpportunityHandler{
		config:   cfg,
		db:       db,
		analyzer: analyzer,
		skills:   ai.NewSkillResolver(db),
	}
}

// IntakeRequest 新消息入库请求
type IntakeRequest struct {
	Message       string `json:"message"`
	ClientName    string `json:"client_name"`
	ClientCompany string `json:"client_company"`
}

// BoardResponse 看板响应：活跃机会列表加各列计数
type BoardResponse struct {
	Opportunities []models.Opportunity             `json:"opportunities"`
	Counts        map[models.OpportunityStatus]int `json:"counts"`
}

// ListBoard 返回看板上所有未进入终态的机会
func (h *OpportunityHandler) ListBoard(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.db.ListActiveOpportunities()
	if err != nil {
		fmt.Printf("❌ ListBoard: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load board")
		return
	}

	counts := map[models.OpportunityStatus]int{
		models.StatusNew:      0,
		models.StatusAssigned: 0,
		models.StatusDone:     0,
	}
	for _, o := range opportunities {
		counts[o.Status]++
	}

	utils.WriteSuccessResponse(w, BoardResponse{
		Opportunities: opportunities,
		Counts:        counts,
	})
}

// Intake 接收客户原始消息，AI分析后落库为新机会
func (h *OpportunityHandler) Intake(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req IntakeRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientCompany = strings.TrimSpace(req.ClientCompany)

	if req.Message == "" {
		utils.WriteBadRequestResponse(w, "message is required")
		return
	}
	if req.ClientName == "" {
		utils.WriteBadRequestResponse(w, "client_name is required")
		return
	}

	// AI分析：摘要、优先级、所需技能
	analysis, err := h.analyzer.AnalyzeMessage(r.Context(), req.Message)
	if err != nil {
		fmt.Printf("❌ Intake: AI analysis failed: %v\n", err)
		utils.WriteErrorResponseWithCode(w, http.StatusBadGateway,
			"AI_ANALYSIS_FAILED", "Message analysis failed", err.Error())
		return
	}

	// 技能名归一化匹配，缺失的自动建档
	skills, err := h.skills.Resolve(analysis.RequiredSkills)
	if err != nil {
		fmt.Printf("❌ Intake: skill resolution failed: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve skills")
		return
	}

	// 客户按 名称+公司 查找，不存在则创建；查询本身失败不能当成"没查到"
	client, err := h.db.FindClientByNameCompany(req.ClientName, req.ClientCompany)
	if errors.Is(err, database.ErrClientNotFound) {
		client = &models.Client{
			Name:      req.ClientName,
			Company:   req.ClientCompany,
			CreatedAt: time.Now(),
		}
		if err := h.db.CreateClient(client); err != nil {
			fmt.Printf("❌ Intake: failed to create client: %v\n", err)
			utils.WriteInternalServerErrorResponse(w, "Failed to create client")
			return
		}
	} else if err != nil {
		fmt.Printf("❌ Intake: client lookup failed: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to look up client")
		return
	}

	skillIDs := make([]string, 0, len(skills))
	for _, s := range skills {
		skillIDs = append(skillIDs, s.ID)
	}

	opportunity := &models.Opportunity{
		ClientID:        client.ID,
		OriginalMessage: req.Message,
		Summary:         analysis.Summary,
		Urgency:         analysis.Urgency(),
		Status:          models.StatusNew,
		SkillIDs:        skillIDs,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := h.db.CreateOpportunity(opportunity); err != nil {
		fmt.Printf("❌ Intake: failed to create opportunity: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create opportunity")
		return
	}

	opportunity.Skills = skills
	opportunity.Client = client

	fmt.Printf("✅ Intake: opportunity %s created by %s (urgency=%s, skills=%d)\n",
		opportunity.ID, user.Email, opportunity.Urgency, len(skillIDs))

	utils.WriteCreatedResponse(w, opportunity)
}

// Get 获取单个机会
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opportunity, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	utils.WriteSuccessResponse(w, opportunity)
}

// UpdateRequest 机会部分更新请求
type UpdateRequest struct {
	Summary         *string  `json:"summary,omitempty"`
	Urgency         *string  `json:"urgency,omitempty"`
	ClientID        *string  `json:"client_id,omitempty"`
	OriginalMessage *string  `json:"original_message,omitempty"`
	SkillIDs        []string `json:"skill_ids,omitempty"`
}

// Update PATCH部分更新机会字段（摘要、紧急程度、客户、技能）
func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.db.GetOpportunity(id); err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	var req UpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	patch := map[string]interface{}{}
	if req.Summary != nil {
		patch["summary"] = *req.Summary
	}
	if req.Urgency != nil {
		urgency := models.ParseUrgency(*req.Urgency)
		patch["urgency"] = string(urgency)
	}
	if req.ClientID != nil {
		patch["client_id"] = *req.ClientID
	}
	if req.OriginalMessage != nil {
		patch["original_message"] = *req.OriginalMessage
	}

	if len(patch) == 0 && req.SkillIDs == nil {
		utils.WriteBadRequestResponse(w, "No updatable fields provided")
		return
	}

	if len(patch) > 0 {
		if err := h.db.UpdateOpportunityPartial(id, patch); err != nil {
			fmt.Printf("❌ Update opportunity %s: %v\n", id, err)
			utils.WriteInternalServerErrorResponse(w, "Failed to update opportunity")
			return
		}
	}

	if req.SkillIDs != nil {
		if err := h.db.SetOpportunitySkills(id, req.SkillIDs); err != nil {
			fmt.Printf("❌ Update opportunity skills %s: %v\n", id, err)
			utils.WriteInternalServerErrorResponse(w, "Failed to update skills")
			return
		}
	}

	updated, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload opportunity")
		return
	}

	utils.WriteSuccessResponse(w, updated)
}

// StatusRequest 状态流转请求
type StatusRequest struct {
	Status     string  `json:"status"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// UpdateStatus 看板列间流转（拖拽落点），校验流转规则
func (h *OpportunityHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	opportunity, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	var req StatusRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	to := models.OpportunityStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	// 目标列为assigned时必须已有或随请求带上负责人
	hasAssignee := opportunity.AssigneeID != nil || req.AssigneeID != nil
	if err := workflow.ValidateTransition(opportunity.Status, to, hasAssignee); err != nil {
		utils.WriteConflictResponse(w, err.Error())
		return
	}

	// 带负责人时校验其存在
	if req.AssigneeID != nil {
		if _, err := h.db.GetProfileByID(*req.AssigneeID); err != nil {
			utils.WriteBadRequestResponse(w, "Assignee not found")
			return
		}
	}

	if err := h.db.SetOpportunityStatus(id, to, req.AssigneeID); err != nil {
		fmt.Printf("❌ UpdateStatus %s -> %s: %v\n", id, to, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to update status")
		return
	}

	updated, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload opportunity")
		return
	}

	fmt.Printf("✅ Opportunity %s moved %s -> %s by %s\n", id, opportunity.Status, to, user.Email)
	utils.WriteSuccessResponse(w, updated)
}

// AssignRequest 指派请求
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// Assign 指派负责人；机会仍在new列时自动进入assigned列
func (h *OpportunityHandler) Assign(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	opportunity, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	var req AssignRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.AssigneeID == "" {
		utils.WriteBadRequestResponse(w, "assignee_id is required")
		return
	}

	if _, err := h.db.GetProfileByID(req.AssigneeID); err != nil {
		utils.WriteBadRequestResponse(w, "Assignee not found")
		return
	}

	if opportunity.Status.IsTerminal() {
		utils.WriteConflictResponse(w, "Cannot assign a cancelled or archived opportunity")
		return
	}

	// 指派意味着状态至少为assigned
	status := opportunity.Status
	if status == models.StatusNew {
		status = models.StatusAssigned
	}

	if err := h.db.SetOpportunityStatus(id, status, &req.AssigneeID); err != nil {
		fmt.Printf("❌ Assign %s to %s: %v\n", id, req.AssigneeID, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to assign opportunity")
		return
	}

	updated, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to reload opportunity")
		return
	}

	fmt.Printf("✅ Opportunity %s assigned to %s by %s\n", id, req.AssigneeID, user.Email)
	utils.WriteSuccessResponse(w, updated)
}

// Delete 彻底删除机会（显式破坏性操作，常规流程走cancelled/archived）
func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	if _, err := h.db.GetOpportunity(id); err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	if err := h.db.DeleteOpportunity(id); err != nil {
		fmt.Printf("❌ Delete opportunity %s: %v\n", id, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to delete opportunity")
		return
	}

	fmt.Printf("🗑️ Opportunity %s deleted by %s\n", id, user.Email)
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Opportunity deleted",
	})
}

// Recommendations 按技能匹配度返回推荐成员列表
func (h *OpportunityHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opportunity, err := h.db.GetOpportunity(id)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Opportunity not found")
		return
	}

	roster, err := buildRoster(h.db)
	if err != nil {
		fmt.Printf("❌ Recommendations for %s: %v\n", id, err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load team")
		return
	}

	recommendations := workflow.RankMembers(opportunity.SkillIDs, roster)
	utils.WriteSuccessResponse(w, recommendations)
}

// buildRoster 把成员列表和实时派单统计拼成带统计的花名册
func buildRoster(db database.DatabaseInterface) ([]models.ProfileWithStats, error) {
	profiles, err := db.ListProfiles()
	if err != nil {
		return nil, err
	}

	counts, err := db.CountOpportunitiesByAssignee()
	if err != nil {
		return nil, err
	}

	roster := make([]models.ProfileWithStats, 0, len(profiles))
	for _, p := range profiles {
		c := counts[p.ID]
		roster = append(roster, models.ProfileWithStats{
			Profile:        p,
			ActiveCount:    c.Active,
			CompletedCount: c.Completed,
		})
	}
	return roster, nil
}

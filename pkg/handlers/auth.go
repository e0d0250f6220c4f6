package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"lead-board-backend/pkg/config"
	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
	"lead-board-backend/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	jwt    *utils.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		jwt:    utils.NewJWTService(cfg.JWTSecret),
	}
}

// Register 注册团队成员账号
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
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

	// 邮箱唯一性检查
	if existing, err := h.db.GetProfileByEmail(req.Email); err == nil && existing != nil {
		utils.WriteConflictResponse(w, "Email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}

	profile := &models.Profile{
		Name:      req.Name,
		Email:     req.Email,
		Password:  hash,
		Role:      req.Role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.db.CreateProfile(profile); err != nil {
		fmt.Printf("❌ Register: failed to create profile: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create account")
		return
	}

	tokens, err := h.jwt.GenerateTokenPair(profile)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	fmt.Printf("✅ Registered new team member %s (%s)\n", profile.ID, profile.Email)

	utils.WriteCreatedResponse(w, models.LoginResponse{
		Profile:      *profile,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Login 登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		utils.WriteBadRequestResponse(w, "Email and password are required")
		return
	}

	profile, err := h.db.GetProfileByEmail(req.Email)
	if err != nil {
		// 不暴露账号是否存在
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, profile.Password) {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	tokens, err := h.jwt.GenerateTokenPair(profile)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteSuccessResponse(w, models.LoginResponse{
		Profile:      *profile,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// RefreshToken 用刷新令牌换取新的令牌对
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}

	// 重新加载档案，保证成员仍然存在
	profile, err := h.db.GetProfileByID(claims.ProfileID)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Account no longer exists")
		return
	}

	tokens, err := h.jwt.GenerateTokenPair(profile)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	utils.WriteSuccessResponse(w, tokens)
}

// Logout 登出（无服务端会话，客户端丢弃令牌即可）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Logged out",
	})
}

// HealthCheck 健康检查，包含数据库状态
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		dbStatus = "error: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"status":      "ok",
		"environment": h.config.Environment,
		"database":    dbStatus,
		"time":        time.Now().Format(time.RFC3339),
	})
}

package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lead-board-backend/pkg/models"
)

// JWTService JWT服务
type JWTService struct {
	secretKey []byte
}

// NewJWTService 创建JWT服务实例
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
	}
}

// TokenPair 访问令牌和刷新令牌的组合
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// GenerateTokenPair 生成访问令牌和刷新令牌
func (j *JWTService) GenerateTokenPair(profile *models.Profile) (*TokenPair, error) {
	now := time.Now()

	// 访问令牌15分钟有效
	accessExp := now.Add(15 * time.Minute)
	accessClaims := &models.TokenClaims{
		ProfileID: profile.ID,
		Email:     profile.Email,
		Type:      "access",
		Exp:       accessExp.Unix(),
		Iat:       now.Unix(),
	}

	accessToken, err := j.generateToken(accessClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// 刷新令牌7天有效
	refreshExp := now.Add(7 * 24 * time.Hour)
	refreshClaims := &models.TokenClaims{
		ProfileID: profile.ID,
		Email:     profile.Email,
		Type:      "refresh",
		Exp:       refreshExp.Unix(),
		Iat:       now.Unix(),
	}

	refreshToken, err := j.generateToken(refreshClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    accessExp.Unix() - now.Unix(),
	}, nil
}

// generateToken 生成JWT令牌
func (j *JWTService) generateToken(claims *models.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken 验证访问令牌
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "access" {
		return nil, fmt.Errorf("invalid token type: expected access, got %s", claims.Type)
	}

	return claims, nil
}

// ValidateRefreshToken 验证刷新令牌
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != "refresh" {
		return nil, fmt.Errorf("invalid token type: expected refresh, got %s", claims.Type)
	}

	return claims, nil
}

// parseToken 解析并校验JWT令牌
func (j *JWTService) parseToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// 检查令牌是否过期
	if time.Now().Unix() > claims.Exp {
		return nil, fmt.Errorf("token has expired")
	}

	return claims, nil
}

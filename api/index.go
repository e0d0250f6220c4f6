package handler

import (
	"fmt"
	"net/http"
	"time"

	"lead-board-backend/pkg/ai"
	"lead-board-backend/pkg/config"
	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/handlers"
	customMiddleware "lead-board-backend/pkg/middleware"
	"lead-board-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler 是Vercel函数的入口点
// 单体路由模式：所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 获取池化的数据库连接（跨热调用复用）
	db := database.GetPooledDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	// 注意：连接由连接池管理，无需手动关闭

	// 创建Chi路由器
	router := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(router, cfg)

	// 设置路由
	setupRoutes(router, cfg, db)

	// 将请求传递给Chi路由器处理
	router.ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	// 可选认证先于日志，这样请求日志能带上登录成员
	router.Use(customMiddleware.OptionalAuthMiddleware(cfg))
	router.Use(customMiddleware.CustomLogger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体限制与Content-Type校验
	router.Use(customMiddleware.MaxBodySize(1 << 20)) // 1MB
	router.Use(customMiddleware.ContentTypeJSON)

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// 创建处理器
	analyzer := ai.NewChatAnalyzer(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	authHandler := handlers.NewAuthHandler(cfg, db)
	opportunityHandler := handlers.NewOpportunityHandler(cfg, db, analyzer)
	teamHandler := handlers.NewTeamHandler(cfg, db)
	skillHandler := handlers.NewSkillHandler(cfg, db)
	clientHandler := handlers.NewClientHandler(cfg, db)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			stats := database.GetConnectionStats()
			stats["vercel"] = database.IsVercelEnvironment()
			utils.WriteSuccessResponse(w, stats)
		})

		// 环境变量检查端点
		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			envStatus := map[string]interface{}{
				"jwt_secret":   cfg.JWTSecret != "",
				"ai_api_key":   cfg.AIAPIKey != "",
				"ai_base_url":  cfg.AIBaseURL,
				"supabase_url": cfg.SupabaseURL != "",
				"postgres_dsn": cfg.PostgresDSN != "",
			}
			utils.WriteSuccessResponse(w, envStatus)
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			// 应用认证中间件
			r.Use(customMiddleware.AuthMiddleware(cfg))

			// 机会看板路由
			r.Route("/opportunities", func(r chi.Router) {
				r.Get("/", opportunityHandler.ListBoard)                           // 看板列表
				r.Post("/intake", opportunityHandler.Intake)                       // 新消息入库
				r.Get("/{id}", opportunityHandler.Get)                             // 机会详情
				r.Patch("/{id}", opportunityHandler.Update)                        // 部分更新
				r.Delete("/{id}", opportunityHandler.Delete)                       // 彻底删除
				r.Put("/{id}/status", opportunityHandler.UpdateStatus)             // 列间流转
				r.Put("/{id}/assign", opportunityHandler.Assign)                   // 指派负责人
				r.Get("/{id}/recommendations", opportunityHandler.Recommendations) // 推荐成员
			})

			// 团队成员路由
			r.Route("/team", func(r chi.Router) {
				r.Get("/", teamHandler.List)
				r.Post("/", teamHandler.Create)
				r.Get("/{id}", teamHandler.Get)
				r.Put("/{id}", teamHandler.Update)
				r.Delete("/{id}", teamHandler.Delete)
			})

			// 技能字典路由
			r.Route("/skills", func(r chi.Router) {
				r.Get("/", skillHandler.List)
				r.Post("/", skillHandler.Create)
				r.Delete("/{id}", skillHandler.Delete)
			})

			// 客户路由
			r.Get("/clients", clientHandler.List)
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}

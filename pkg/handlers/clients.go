package handlers

import (
	"fmt"
	"net/http"

	"lead-board-backend/pkg/config"
	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/utils"
)

// ClientHandler 客户处理器
type ClientHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewClientHandler 创建客户处理器
func NewClientHandler(cfg *config.Config, db database.DatabaseInterface) *ClientHandler {
	return &ClientHandler{
		config: cfg,
		db:     db,
	}
}

// List 列出全部客户（客户随入库消息自动建档）
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.db.ListClients()
	if err != nil {
		fmt.Printf("❌ Client list: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to load clients")
		return
	}

	utils.WriteSuccessResponse(w, clients)
}

package main

import (
	"fmt"
	"log"
	"net/http"

	handler "lead-board-backend/api"
	"lead-board-backend/pkg/config"
)

// 本地开发入口，把Vercel函数挂到一个普通HTTP服务上
func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	addr := ":" + cfg.Port
	fmt.Printf("🚀 Lead board API listening on %s (env=%s)\n", addr, cfg.Environment)

	if err := http.ListenAndServe(addr, http.HandlerFunc(handler.Handler)); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

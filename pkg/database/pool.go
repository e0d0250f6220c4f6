package database

import (
	"fmt"
	"sync"
	"time"
)

// DatabasePool 进程级数据库连接复用
// 无服务器环境下同一个冷启动周期内的多次调用共享同一个连接实例
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取数据库连接（单例模式 + 连接复用）
func GetDatabase(config DatabaseConfig) DatabaseInterface {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	// 检查是否需要创建新连接
	if globalPool == nil || shouldRecreateConnection(globalPool, config) {
		fmt.Printf("🔄 Creating new database connection pool\n")

		// 关闭旧连接（如果存在）
		if globalPool != nil && globalPool.instance != nil {
			globalPool.instance.Close()
		}

		instance := NewDatabase(config)
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
		return instance
	}

	// 复用前做一次健康检查，失效连接直接重建（Lambda 冷冻后连接可能已断）
	if err := globalPool.instance.HealthCheck(); err != nil {
		fmt.Printf("❌ Pooled connection unhealthy, recreating: %v\n", err)
		globalPool.instance.Close()
		instance := NewDatabase(config)
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
		return instance
	}

	globalPool.mu.Lock()
	globalPool.lastUsed = time.Now()
	globalPool.mu.Unlock()
	fmt.Printf("♻️  Reusing existing database connection\n")
	return globalPool.instance
}

// shouldRecreateConnection 配置变化或连接过久未用时重建
func shouldRecreateConnection(pool *DatabasePool, config DatabaseConfig) bool {
	if pool.config != config {
		return true
	}
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	// 空闲超过10分钟的连接不再信任
	return time.Since(pool.lastUsed) > 10*time.Minute
}

// GetConnectionStats 连接池状态（调试端点用）
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{"status": "no_connection"}
	}

	globalPool.mu.RLock()
	defer globalPool.mu.RUnlock()
	return map[string]interface{}{
		"status":    "connected",
		"last_used": globalPool.lastUsed.Format(time.RFC3339),
		"idle":      time.Since(globalPool.lastUsed).String(),
	}
}

// GetPooledDatabase 全局入口：统一走连接复用
func GetPooledDatabase(config DatabaseConfig) DatabaseInterface {
	return GetDatabase(config)
}

// IsVercelEnvironment 检查是否在Vercel环境中（导出版本）
func IsVercelEnvironment() bool {
	return isVercelEnvironment()
}

/*
 * @module logger/logger
 * @description 全局日志初始化，JSON格式输出到stdout，级别由LOG_LEVEL环境变量控制
 * @architecture 基础设施层
 * @dependencies log/slog
 * @refs service/init.go
 */

package logger

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger 初始化全局日志记录器
// 创建 JSON 格式的日志处理器,输出到 stdout
func InitLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

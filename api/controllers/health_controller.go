/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器
 * @architecture MVC架构 - 控制器层
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"flexdata-service/service"

	"github.com/go-chi/render"
)

// HealthController 健康检查控制器
type HealthController struct{}

// NewHealthController 创建健康检查控制器实例
func NewHealthController() *HealthController {
	return &HealthController{}
}

// Health 存活检查
// @Summary 存活检查
// @Tags 运维
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("ok", nil))
}

// Ready 就绪检查，确认数据库连接可用
// @Summary 就绪检查
// @Tags 运维
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := service.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse(http.StatusServiceUnavailable, "数据库不可用", nil))
		return
	}
	render.JSON(w, r, SuccessResponse("ready", nil))
}

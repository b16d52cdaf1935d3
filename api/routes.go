/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"flexdata-service/api/controllers"
	localmw "flexdata-service/api/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 租户上下文
	r.Use(localmw.TenantContext)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 动态表结构与记录管理
	r.Route("/tables", func(r chi.Router) {
		tableController := controllers.NewTableController()
		recordController := controllers.NewRecordController()
		transferController := controllers.NewTransferController()

		r.Post("/", tableController.CreateTable)
		r.Get("/", tableController.ListTables)
		r.Get("/{id}", tableController.GetTable)

		// 字段管理
		r.Post("/{id}/fields", tableController.AddField)
		r.Put("/{id}/fields/{fieldId}", tableController.UpdateField)
		r.Delete("/{id}/fields/{fieldId}", tableController.DeleteField)

		// 关联管理
		r.Post("/{id}/relations", tableController.CreateRelation)

		// 记录管理
		r.Post("/{id}/records", recordController.InsertRecord)
		r.Get("/{id}/records/{recordId}", recordController.GetRecord)
		r.Put("/{id}/records/{recordId}", recordController.UpdateRecord)
		r.Delete("/{id}/records/{recordId}", recordController.DeleteRecord)
		r.Post("/{id}/records/query", recordController.QueryRecords)

		// 批量传输
		r.Post("/{id}/records/import", transferController.ImportRecords)
		r.Get("/{id}/records/export", transferController.ExportRecords)
	})
}

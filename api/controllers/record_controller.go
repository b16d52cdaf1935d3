/*
 * @module api/controllers/record_controller
 * @description 动态表记录控制器：记录写入、合并更新、软删除与分页查询
 * @architecture MVC架构 - 控制器层
 * @stateFlow HTTP请求 -> 参数解析 -> 业务服务调用 -> 统一响应
 * @dependencies flexdata-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/dynamic_table/record_service.go, service/dynamic_table/query_service.go
 */

package controllers

import (
	"net/http"

	"flexdata-service/api/middleware"
	"flexdata-service/service"
	"flexdata-service/service/dynamic_table"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RecordController 动态表记录控制器
type RecordController struct {
	records *dynamic_table.RecordService
	query   *dynamic_table.QueryService
}

// NewRecordController 创建动态表记录控制器实例
func NewRecordController() *RecordController {
	return &RecordController{
		records: service.GlobalRecordService,
		query:   service.GlobalQueryService,
	}
}

// InsertRecord 插入记录
// @Summary 插入记录
// @Description 按当前表定义校验载荷后写入，计算字段由服务端求值
// @Tags 记录管理
// @Accept json
// @Produce json
// @Param id path string true "表ID"
// @Param request body object true "记录载荷（字段名->值）"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records [post]
func (c *RecordController) InsertRecord(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	record, err := c.records.Insert(chi.URLParam(r, "id"), payload, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("创建成功", record))
}

// GetRecord 获取记录详情
// @Summary 获取记录详情
// @Tags 记录管理
// @Produce json
// @Param id path string true "表ID"
// @Param recordId path string true "记录ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/{recordId} [get]
func (c *RecordController) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := c.records.GetRecord(chi.URLParam(r, "id"), chi.URLParam(r, "recordId"))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("操作成功", record))
}

// UpdateRecord 合并更新记录
// @Summary 合并更新记录
// @Description 新载荷覆盖到既有数据之上，整份合并文档重新校验
// @Tags 记录管理
// @Accept json
// @Produce json
// @Param id path string true "表ID"
// @Param recordId path string true "记录ID"
// @Param request body object true "更新载荷（字段名->值）"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/{recordId} [put]
func (c *RecordController) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	record, err := c.records.Update(chi.URLParam(r, "id"), chi.URLParam(r, "recordId"), payload, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("更新成功", record))
}

// DeleteRecord 软删除记录
// @Summary 软删除记录
// @Tags 记录管理
// @Produce json
// @Param id path string true "表ID"
// @Param recordId path string true "记录ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/{recordId} [delete]
func (c *RecordController) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := c.records.SoftDelete(chi.URLParam(r, "id"), chi.URLParam(r, "recordId")); err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("删除成功", nil))
}

// QueryRecords 分页查询记录
// @Summary 分页查询记录
// @Description 仅支持精确等值过滤；按业务字段排序时只对当前页重排
// @Tags 记录管理
// @Accept json
// @Produce json
// @Param id path string true "表ID"
// @Param request body dynamic_table.QueryOptions true "查询选项"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/query [post]
func (c *RecordController) QueryRecords(w http.ResponseWriter, r *http.Request) {
	var opts dynamic_table.QueryOptions
	if err := render.DecodeJSON(r.Body, &opts); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	result, err := c.query.Query(chi.URLParam(r, "id"), opts)
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("操作成功", result))
}

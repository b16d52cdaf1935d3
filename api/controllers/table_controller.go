/*
 * @module api/controllers/table_controller
 * @description 动态表结构管理控制器：表定义、字段、关联的增删改查
 * @architecture MVC架构 - 控制器层
 * @stateFlow HTTP请求 -> 参数解析 -> 业务服务调用 -> 统一响应
 * @rules 租户ID取自上下文；结构性校验失败返回400并携带字段详情
 * @dependencies flexdata-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/dynamic_table/schema_service.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"flexdata-service/api/middleware"
	"flexdata-service/service"
	"flexdata-service/service/dynamic_table"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// TableController 动态表结构管理控制器
type TableController struct {
	schema *dynamic_table.SchemaService
}

// NewTableController 创建动态表结构管理控制器实例
func NewTableController() *TableController {
	return &TableController{schema: service.GlobalSchemaService}
}

// CreateTableRequest 创建表请求
type CreateTableRequest struct {
	Name        string `json:"name" validate:"required" example:"employees"`
	DisplayName string `json:"display_name" example:"员工"`
	Description string `json:"description,omitempty"`
}

// CreateTable 创建数据表
// @Summary 创建动态数据表
// @Description 在当前租户下创建一张空结构的动态表
// @Tags 表结构管理
// @Accept json
// @Produce json
// @Param request body CreateTableRequest true "创建表请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /tables [post]
func (c *TableController) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	table, err := c.schema.CreateTable(
		middleware.TenantID(r.Context()),
		req.Name, req.DisplayName, req.Description,
		middleware.ActorID(r.Context()),
	)
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("创建成功", table))
}

// ListTables 获取表定义列表
// @Summary 获取当前租户的数据表列表
// @Tags 表结构管理
// @Produce json
// @Param page query int false "页码"
// @Param size query int false "每页数量"
// @Success 200 {object} PaginatedResponse
// @Router /tables [get]
func (c *TableController) ListTables(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	tables, total, err := c.schema.ListTables(middleware.TenantID(r.Context()), page, size)
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, &PaginatedResponse{
		Status: 0, Msg: "操作成功",
		Data: tables, Total: total, Page: page, Size: size,
	})
}

// GetTable 获取表定义详情
// @Summary 获取数据表定义详情
// @Tags 表结构管理
// @Produce json
// @Param id path string true "表ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id} [get]
func (c *TableController) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := c.schema.GetTable(chi.URLParam(r, "id"))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("操作成功", table))
}

// AddField 追加字段
// @Summary 向数据表追加字段
// @Tags 表结构管理
// @Accept json
// @Produce json
// @Param id path string true "表ID"
// @Param request body dynamic_table.FieldSpec true "字段定义"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/fields [post]
func (c *TableController) AddField(w http.ResponseWriter, r *http.Request) {
	var spec dynamic_table.FieldSpec
	if err := render.DecodeJSON(r.Body, &spec); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	field, err := c.schema.AddField(chi.URLParam(r, "id"), spec, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("添加成功", field))
}

// UpdateField 修改字段定义
// @Summary 修改字段定义（合并语义，id和name不可变更）
// @Tags 表结构管理
// @Accept json
// @Produce json
// @Param id path string true "表ID"
// @Param fieldId path string true "字段ID"
// @Param request body dynamic_table.FieldPatch true "字段修改"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/fields/{fieldId} [put]
func (c *TableController) UpdateField(w http.ResponseWriter, r *http.Request) {
	var patch dynamic_table.FieldPatch
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	field, err := c.schema.UpdateField(chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), patch, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("修改成功", field))
}

// DeleteField 删除字段
// @Summary 从表定义中删除字段（不清理已存记录数据）
// @Tags 表结构管理
// @Produce json
// @Param id path string true "表ID"
// @Param fieldId path string true "字段ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/fields/{fieldId} [delete]
func (c *TableController) DeleteField(w http.ResponseWriter, r *http.Request) {
	err := c.schema.DeleteField(chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("删除成功", nil))
}

// CreateRelation 创建关联
// @Summary 创建表间关联
// @Tags 表结构管理
// @Accept json
// @Produce json
// @Param id path string true "源表ID"
// @Param request body dynamic_table.RelationSpec true "关联定义"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/relations [post]
func (c *TableController) CreateRelation(w http.ResponseWriter, r *http.Request) {
	var spec dynamic_table.RelationSpec
	if err := render.DecodeJSON(r.Body, &spec); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数格式错误", nil))
		return
	}

	relation, err := c.schema.CreateRelation(chi.URLParam(r, "id"), spec, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("创建成功", relation))
}

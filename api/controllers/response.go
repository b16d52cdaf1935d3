/*
 * @module api/controllers/response
 * @description 统一API响应结构与错误映射：校验错误400、未找到404、其余500
 * @architecture MVC架构 - 控制器层
 * @rules 校验错误返回{field,value,message}结构化详情供表单级展示
 * @dependencies flexdata-service/service/dynamic_table
 * @refs api/controllers
 */

package controllers

import (
	"errors"
	"net/http"

	"flexdata-service/service/dynamic_table"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 构造失败响应
func ErrorResponse(status int, msg string, detail interface{}) *APIResponse {
	return &APIResponse{Status: status, Msg: msg, Data: detail}
}

// RenderError 按错误类型写出响应
// ValidationError -> 400（携带字段与违规值），NotFoundError -> 404，其余 -> 500
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *dynamic_table.ValidationError
	if errors.As(err, &validationErr) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, validationErr.Error(), validationErr))
		return
	}

	var notFoundErr *dynamic_table.NotFoundError
	if errors.As(err, &notFoundErr) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse(http.StatusNotFound, notFoundErr.Error(), nil))
		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "内部错误: "+err.Error(), nil))
}

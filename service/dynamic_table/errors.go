/*
 * @module service/dynamic_table/errors
 * @description 动态表引擎错误分类：校验错误携带字段与违规值，未找到错误携带资源类型
 * @architecture 分层架构 - 业务服务层
 * @rules 所有前置校验在触达存储前完成并抛出最具体的错误；存储层错误原样上抛
 * @refs api/controllers/response.go
 */

package dynamic_table

import "fmt"

// ValidationError 载荷违反表结构约束时返回，可直接用于表单级错误展示
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("字段 %s 校验失败: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("校验失败: %s", e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NotFoundError 引用的表、字段、关联或记录不存在（或已被软删除）
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id,omitempty"`
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s不存在: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s不存在", e.Resource)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

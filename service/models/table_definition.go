/*
 * @module service/models/table_definition
 * @description 动态表定义相关模型，包括表定义、字段定义、关联定义等核心实体
 * @architecture DDD领域驱动设计 - 实体模型
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dynamic_table/schema_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 字段类型常量
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeBoolean  = "boolean"
	FieldTypeDate     = "date"
	FieldTypeRelation = "relation"
	FieldTypeComputed = "computed"
)

// 关联类型常量
const (
	RelationOneToOne   = "one-to-one"
	RelationOneToMany  = "one-to-many"
	RelationManyToOne  = "many-to-one"
	RelationManyToMany = "many-to-many"
)

// TableDefinition 动态表定义模型
// 字段和关联以JSONB文档形式存储在表定义自身，任何结构变更都整体重写文档
type TableDefinition struct {
	ID          string                 `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID    string                 `json:"tenant_id" gorm:"not null;type:varchar(36);index"`
	Name        string                 `json:"name" gorm:"not null;size:255;index"` // 英文名，创建后不可变更
	DisplayName string                 `json:"display_name" gorm:"not null;size:255"`
	Description string                 `json:"description" gorm:"size:1000"`
	Fields      FieldDefinitionList    `json:"fields" gorm:"type:jsonb"`
	Relations   RelationDefinitionList `json:"relations" gorm:"type:jsonb"`
	CreatedAt   time.Time              `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedBy   string                 `json:"created_by" gorm:"not null;default:'system';size:100"`
	UpdatedAt   time.Time              `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedBy   string                 `json:"updated_by" gorm:"not null;default:'system';size:100"`
}

// FieldDefinition 字段定义，作为表定义文档的一部分存储
// id和name在创建时分配且不可变更；类型、约束、默认值和公式允许后续修改，
// 修改不会回填已存储的记录数据
type FieldDefinition struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"` // 英文名，表内唯一
	DisplayName  string           `json:"display_name"`
	Type         string           `json:"type"` // text, number, boolean, date, relation, computed
	Required     bool             `json:"required"`
	Unique       bool             `json:"unique,omitempty"`
	DefaultValue interface{}      `json:"default_value,omitempty"`
	Validation   *FieldValidation `json:"validation,omitempty"`
	Formula      string           `json:"formula,omitempty"` // 仅computed类型使用
}

// FieldValidation 字段校验规则
// 数值类型取min/max为数值区间（含边界），文本类型取min/max为长度区间
type FieldValidation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// RelationDefinition 表间关联定义
// 仅在创建时校验两端字段存在，字段后续删除不会级联清理关联
type RelationDefinition struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // one-to-one, one-to-many, many-to-one, many-to-many
	FromTable string `json:"from_table"`
	ToTable   string `json:"to_table"`
	FromField string `json:"from_field"`
	ToField   string `json:"to_field"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (td *TableDefinition) BeforeCreate(tx *gorm.DB) error {
	if td.ID == "" {
		td.ID = uuid.New().String()
	}
	if td.CreatedBy == "" {
		td.CreatedBy = "system"
	}
	if td.UpdatedBy == "" {
		td.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate GORM钩子，更新前设置更新者
func (td *TableDefinition) BeforeUpdate(tx *gorm.DB) error {
	if td.UpdatedBy == "" {
		td.UpdatedBy = "system"
	}
	return nil
}

// FieldByID 按字段ID查找字段定义，返回索引，未找到时返回-1
func (td *TableDefinition) FieldByID(fieldID string) (*FieldDefinition, int) {
	for i := range td.Fields {
		if td.Fields[i].ID == fieldID {
			return &td.Fields[i], i
		}
	}
	return nil, -1
}

// FieldByName 按字段英文名查找字段定义
func (td *TableDefinition) FieldByName(name string) *FieldDefinition {
	for i := range td.Fields {
		if td.Fields[i].Name == name {
			return &td.Fields[i]
		}
	}
	return nil
}

/*
 * @module service/dynamic_table/schema_service
 * @description 动态表结构管理服务：表定义、字段定义、关联定义的运行时增删改，无需物理迁移
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 结构变更请求 -> 前置校验 -> 整体重写表定义文档
 * @rules 表名和字段名创建后不可变更；唯一性仅在创建时校验；字段删除不清理已存记录数据
 * @dependencies flexdata-service/service/models, gorm.io/gorm, github.com/google/uuid
 * @refs service/dynamic_table/record_service.go
 */

package dynamic_table

import (
	"errors"
	"log/slog"

	"flexdata-service/service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchemaService 表结构管理服务
// 每次结构变更都整体重写表定义文档，并发编辑存在后写覆盖先写的竞态，
// 通过tableLock在实例内（或配置Redis后跨实例）串行化
type SchemaService struct {
	db   *gorm.DB
	lock TableLocker
}

// NewSchemaService 创建表结构管理服务实例
func NewSchemaService(db *gorm.DB, lock TableLocker) *SchemaService {
	if lock == nil {
		lock = NewMemoryTableLock()
	}
	return &SchemaService{db: db, lock: lock}
}

// FieldSpec 新增字段请求
type FieldSpec struct {
	Name         string                  `json:"name" validate:"required" example:"email"`
	DisplayName  string                  `json:"display_name" example:"邮箱"`
	Type         string                  `json:"type" validate:"required" example:"text"`
	Required     bool                    `json:"required"`
	Unique       bool                    `json:"unique"`
	DefaultValue interface{}             `json:"default_value,omitempty"`
	Validation   *models.FieldValidation `json:"validation,omitempty"`
	Formula      string                  `json:"formula,omitempty"`
}

// FieldPatch 字段修改请求，nil表示不修改对应属性
// id和name不可修改；类型或约束的修改不会回填已存储的记录值
type FieldPatch struct {
	DisplayName  *string                 `json:"display_name,omitempty"`
	Type         *string                 `json:"type,omitempty"`
	Required     *bool                   `json:"required,omitempty"`
	Unique       *bool                   `json:"unique,omitempty"`
	DefaultValue interface{}             `json:"default_value,omitempty"`
	Validation   *models.FieldValidation `json:"validation,omitempty"`
	Formula      *string                 `json:"formula,omitempty"`
}

// RelationSpec 新增关联请求
type RelationSpec struct {
	Type      string `json:"type" validate:"required" example:"one-to-many"`
	ToTable   string `json:"to_table" validate:"required"`
	FromField string `json:"from_field" validate:"required"`
	ToField   string `json:"to_field" validate:"required"`
}

var validFieldTypes = map[string]bool{
	models.FieldTypeText:     true,
	models.FieldTypeNumber:   true,
	models.FieldTypeBoolean:  true,
	models.FieldTypeDate:     true,
	models.FieldTypeRelation: true,
	models.FieldTypeComputed: true,
}

var validRelationTypes = map[string]bool{
	models.RelationOneToOne:   true,
	models.RelationOneToMany:  true,
	models.RelationManyToOne:  true,
	models.RelationManyToMany: true,
}

// CreateTable 创建空的表定义
func (s *SchemaService) CreateTable(tenantID, name, displayName, description, actorID string) (*models.TableDefinition, error) {
	if !isValidEntityName(name) {
		return nil, NewValidationError("name", name, "表名必须为snake_case格式（小写字母开头，仅含小写字母、数字和下划线）")
	}

	// 同一租户下英文名不可重复，不同租户之间互不影响
	var count int64
	if err := s.db.Model(&models.TableDefinition{}).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewValidationError("name", name, "同名数据表已存在")
	}

	table := &models.TableDefinition{
		TenantID:    tenantID,
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Fields:      models.FieldDefinitionList{},
		Relations:   models.RelationDefinitionList{},
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
	}
	if err := s.db.Create(table).Error; err != nil {
		return nil, err
	}

	slog.Info("创建数据表", "tenant_id", tenantID, "table_id", table.ID, "name", name)
	return table, nil
}

// GetTable 获取表定义详情
func (s *SchemaService) GetTable(tableID string) (*models.TableDefinition, error) {
	var table models.TableDefinition
	if err := s.db.First(&table, "id = ?", tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("数据表", tableID)
		}
		return nil, err
	}
	return &table, nil
}

// ListTables 获取租户下的表定义列表
func (s *SchemaService) ListTables(tenantID string, page, pageSize int) ([]models.TableDefinition, int64, error) {
	var tables []models.TableDefinition
	var total int64

	query := s.db.Model(&models.TableDefinition{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&tables).Error
	return tables, total, err
}

// AddField 向表定义追加字段
func (s *SchemaService) AddField(tableID string, spec FieldSpec, actorID string) (*models.FieldDefinition, error) {
	var added *models.FieldDefinition
	err := s.lock.WithLock(tableID, func() error {
		table, err := s.GetTable(tableID)
		if err != nil {
			return err
		}

		if !isValidEntityName(spec.Name) {
			return NewValidationError("name", spec.Name, "字段名必须为snake_case格式（小写字母开头，仅含小写字母、数字和下划线）")
		}
		if !validFieldTypes[spec.Type] {
			return NewValidationError("type", spec.Type, "不支持的字段类型")
		}
		if spec.Type == models.FieldTypeComputed && spec.Formula == "" {
			return NewValidationError("formula", nil, "computed类型字段必须提供formula")
		}
		if table.FieldByName(spec.Name) != nil {
			return NewValidationError("name", spec.Name, "同名字段已存在")
		}

		field := models.FieldDefinition{
			ID:           uuid.New().String(),
			Name:         spec.Name,
			DisplayName:  spec.DisplayName,
			Type:         spec.Type,
			Required:     spec.Required,
			Unique:       spec.Unique,
			DefaultValue: spec.DefaultValue,
			Validation:   spec.Validation,
			Formula:      spec.Formula,
		}
		table.Fields = append(table.Fields, field)

		if err := s.saveSchema(table, actorID); err != nil {
			return err
		}
		added = &table.Fields[len(table.Fields)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// UpdateField 合并修改字段定义，id和name保持不变
// 类型变更不会重译已存储的记录值，历史数据可能不再匹配当前类型
func (s *SchemaService) UpdateField(tableID, fieldID string, patch FieldPatch, actorID string) (*models.FieldDefinition, error) {
	var updated *models.FieldDefinition
	err := s.lock.WithLock(tableID, func() error {
		table, err := s.GetTable(tableID)
		if err != nil {
			return err
		}

		field, idx := table.FieldByID(fieldID)
		if idx < 0 {
			return NewNotFoundError("字段", fieldID)
		}

		if patch.Type != nil {
			if !validFieldTypes[*patch.Type] {
				return NewValidationError("type", *patch.Type, "不支持的字段类型")
			}
			field.Type = *patch.Type
		}
		if patch.DisplayName != nil {
			field.DisplayName = *patch.DisplayName
		}
		if patch.Required != nil {
			field.Required = *patch.Required
		}
		if patch.Unique != nil {
			field.Unique = *patch.Unique
		}
		if patch.DefaultValue != nil {
			field.DefaultValue = patch.DefaultValue
		}
		if patch.Validation != nil {
			field.Validation = patch.Validation
		}
		if patch.Formula != nil {
			field.Formula = *patch.Formula
		}

		if err := s.saveSchema(table, actorID); err != nil {
			return err
		}
		updated = field
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteField 从表定义中移除字段
// 仅修改结构文档，不删除已存记录中的对应数据键（软结构演化），
// 也不清理引用该字段的关联定义
func (s *SchemaService) DeleteField(tableID, fieldID string, actorID string) error {
	return s.lock.WithLock(tableID, func() error {
		table, err := s.GetTable(tableID)
		if err != nil {
			return err
		}

		_, idx := table.FieldByID(fieldID)
		if idx < 0 {
			return NewNotFoundError("字段", fieldID)
		}

		table.Fields = append(table.Fields[:idx], table.Fields[idx+1:]...)
		return s.saveSchema(table, actorID)
	})
}

// CreateRelation 创建表间关联
// 两端字段的存在性仅在此刻校验，后续字段删除不会使关联失效
func (s *SchemaService) CreateRelation(tableID string, spec RelationSpec, actorID string) (*models.RelationDefinition, error) {
	var added *models.RelationDefinition
	err := s.lock.WithLock(tableID, func() error {
		table, err := s.GetTable(tableID)
		if err != nil {
			return err
		}

		target, err := s.GetTable(spec.ToTable)
		if err != nil {
			return err
		}

		if !validRelationTypes[spec.Type] {
			return NewValidationError("type", spec.Type, "不支持的关联类型")
		}
		if table.FieldByName(spec.FromField) == nil {
			return NewValidationError("from_field", spec.FromField, "源表中不存在该字段")
		}
		if target.FieldByName(spec.ToField) == nil {
			return NewValidationError("to_field", spec.ToField, "目标表中不存在该字段")
		}

		relation := models.RelationDefinition{
			ID:        uuid.New().String(),
			Type:      spec.Type,
			FromTable: table.ID,
			ToTable:   target.ID,
			FromField: spec.FromField,
			ToField:   spec.ToField,
		}
		table.Relations = append(table.Relations, relation)

		if err := s.saveSchema(table, actorID); err != nil {
			return err
		}
		added = &table.Relations[len(table.Relations)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// saveSchema 整体重写表定义文档
func (s *SchemaService) saveSchema(table *models.TableDefinition, actorID string) error {
	if actorID != "" {
		table.UpdatedBy = actorID
	}
	return s.db.Model(&models.TableDefinition{}).
		Where("id = ?", table.ID).
		Updates(map[string]interface{}{
			"fields":     table.Fields,
			"relations":  table.Relations,
			"updated_by": table.UpdatedBy,
		}).Error
}

// isValidEntityName 校验表名/字段名格式: ^[a-z][a-z0-9_]*$
func isValidEntityName(name string) bool {
	if len(name) == 0 {
		return false
	}
	if !(name[0] >= 'a' && name[0] <= 'z') {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

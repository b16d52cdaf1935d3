/*
 * @module service/dynamic_table/record_service
 * @description 动态表记录服务：写入前按当前表定义完成校验、默认值补齐、计算字段求值和唯一性扫描
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 载荷 -> 校验 -> 默认值 -> 计算字段 -> 唯一性扫描 -> 持久化
 * @rules 更新采用合并语义，整份合并文档重新校验和求值；唯一性为应用层全表等值扫描，
 *        已软删除记录不参与扫描；计算字段求值失败置空不中断写入
 * @dependencies flexdata-service/service/models, gorm.io/gorm
 * @refs service/dynamic_table/schema_service.go, service/dynamic_table/validator.go
 */

package dynamic_table

import (
	"errors"
	"log/slog"
	"reflect"
	"time"

	"flexdata-service/service/models"

	"gorm.io/gorm"
)

// RecordService 动态表记录服务
type RecordService struct {
	db        *gorm.DB
	schema    *SchemaService
	validator *FieldValidator
	evaluator *FormulaEvaluator
	lock      TableLocker
}

// NewRecordService 创建记录服务实例
func NewRecordService(db *gorm.DB, schema *SchemaService, lock TableLocker) *RecordService {
	if lock == nil {
		lock = NewMemoryTableLock()
	}
	return &RecordService{
		db:        db,
		schema:    schema,
		validator: NewFieldValidator(),
		evaluator: NewFormulaEvaluator(),
		lock:      lock,
	}
}

// Insert 插入记录
// 依次执行校验、默认值补齐、计算字段求值和唯一性扫描后持久化
func (s *RecordService) Insert(tableID string, payload map[string]interface{}, actorID string) (*models.Record, error) {
	table, err := s.schema.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	var record *models.Record
	err = s.lock.WithLock(tableID, func() error {
		data, err := s.validator.Validate(table.Fields, payload)
		if err != nil {
			return err
		}

		applyDefaults(table.Fields, data)
		s.applyComputedFields(table.Fields, data)

		if err := s.checkUnique(table, data, ""); err != nil {
			return err
		}

		record = &models.Record{
			TableID:   table.ID,
			Data:      data,
			CreatedBy: actorID,
			UpdatedBy: actorID,
		}
		return s.db.Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update 合并更新记录
// 新载荷覆盖到既有data之上，整份合并文档重新校验、求值并重做唯一性扫描（排除自身）
func (s *RecordService) Update(tableID, recordID string, payload map[string]interface{}, actorID string) (*models.Record, error) {
	table, err := s.schema.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	var record *models.Record
	err = s.lock.WithLock(tableID, func() error {
		existing, err := s.getActiveRecord(tableID, recordID)
		if err != nil {
			return err
		}

		merged := make(map[string]interface{}, len(existing.Data)+len(payload))
		for k, v := range existing.Data {
			merged[k] = v
		}
		for k, v := range payload {
			merged[k] = v
		}

		data, err := s.validator.Validate(table.Fields, merged)
		if err != nil {
			return err
		}

		s.applyComputedFields(table.Fields, data)

		if err := s.checkUnique(table, data, existing.ID); err != nil {
			return err
		}

		existing.Data = data
		existing.UpdatedBy = actorID
		if err := s.db.Model(&models.Record{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"data":       existing.Data,
				"updated_by": actorID,
			}).Error; err != nil {
			return err
		}
		record = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SoftDelete 软删除记录（设置墓碑时间戳，不做物理删除）
func (s *RecordService) SoftDelete(tableID, recordID string) error {
	var record models.Record
	if err := s.db.First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("记录", recordID)
		}
		return err
	}
	if record.IsDeleted() {
		return NewNotFoundError("记录", recordID)
	}
	if record.TableID != tableID {
		return NewValidationError("table_id", tableID, "记录不属于该数据表")
	}

	now := time.Now()
	return s.db.Model(&models.Record{}).
		Where("id = ?", recordID).
		Update("deleted_at", now).Error
}

// GetRecord 获取未删除的记录
func (s *RecordService) GetRecord(tableID, recordID string) (*models.Record, error) {
	return s.getActiveRecord(tableID, recordID)
}

func (s *RecordService) getActiveRecord(tableID, recordID string) (*models.Record, error) {
	var record models.Record
	err := s.db.First(&record, "id = ? AND table_id = ? AND deleted_at IS NULL", recordID, tableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("记录", recordID)
		}
		return nil, err
	}
	return &record, nil
}

// applyDefaults 为载荷中缺失的字段补默认值，仅在插入时调用
func applyDefaults(fields []models.FieldDefinition, data map[string]interface{}) {
	for i := range fields {
		field := &fields[i]
		if field.Type == models.FieldTypeComputed || field.DefaultValue == nil {
			continue
		}
		if _, ok := data[field.Name]; !ok {
			data[field.Name] = field.DefaultValue
		}
	}
}

// applyComputedFields 重算所有计算字段
// 调用方提供的计算字段取值一律丢弃；求值失败置为nil并继续写入
func (s *RecordService) applyComputedFields(fields []models.FieldDefinition, data map[string]interface{}) {
	for i := range fields {
		field := &fields[i]
		if field.Type != models.FieldTypeComputed {
			continue
		}

		value, err := s.evaluator.Evaluate(field.Formula, data)
		if err != nil {
			slog.Warn("计算字段求值失败，该字段置空",
				"field", field.Name,
				"formula", field.Formula,
				"error", err)
			data[field.Name] = nil
			continue
		}
		data[field.Name] = value
	}
}

// checkUnique 唯一性扫描
// 对每个unique字段的非空取值，与本表所有未删除记录做精确等值比较；
// 无索引的应用层全表扫描，开销随表规模线性增长，与随后的写入也不构成原子对
func (s *RecordService) checkUnique(table *models.TableDefinition, data map[string]interface{}, excludeID string) error {
	uniqueFields := make([]*models.FieldDefinition, 0, 2)
	for i := range table.Fields {
		field := &table.Fields[i]
		if !field.Unique {
			continue
		}
		if value, ok := data[field.Name]; ok && value != nil {
			uniqueFields = append(uniqueFields, field)
		}
	}
	if len(uniqueFields) == 0 {
		return nil
	}

	var records []models.Record
	query := s.db.Where("table_id = ? AND deleted_at IS NULL", table.ID)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Find(&records).Error; err != nil {
		return err
	}

	for _, field := range uniqueFields {
		candidate := data[field.Name]
		for i := range records {
			if stored, ok := records[i].Data[field.Name]; ok && valuesEqual(stored, candidate) {
				return NewValidationError(displayName(field), candidate, "取值必须唯一，已有记录使用了相同的值")
			}
		}
	}
	return nil
}

// valuesEqual 精确等值比较
// 存储侧与候选侧都经过JSON规范化（数字为float64、布尔为bool、文本为string）
func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

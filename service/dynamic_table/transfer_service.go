/*
 * @module service/dynamic_table/transfer_service
 * @description 批量导入导出引擎：逐行导入容忍部分失败，导出按当前表定义投影
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 导入: 行序遍历 -> 逐行insert -> 失败行记录错误并继续;
 *            导出: 取未删除记录 -> 按当前字段列表投影 -> 行列结果
 * @rules 行号从表头行计偏移（首个数据行为第2行）；导出忽略不在当前表定义中的孤儿数据键；
 *        导出有硬上限，按创建时间倒序
 * @dependencies flexdata-service/service/models, gorm.io/gorm, github.com/spf13/cast
 * @refs service/dynamic_table/record_service.go, api/controllers/transfer_controller.go
 */

package dynamic_table

import (
	"encoding/json"
	"time"

	"flexdata-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// 导出记录数硬上限
const exportRowLimit = 5000

// CSV首个数据行的行号（第1行为表头）
const importHeaderOffset = 2

// TransferService 批量导入导出引擎
type TransferService struct {
	db      *gorm.DB
	schema  *SchemaService
	records *RecordService
}

// NewTransferService 创建批量导入导出引擎实例
func NewTransferService(db *gorm.DB, schema *SchemaService, records *RecordService) *TransferService {
	return &TransferService{db: db, schema: schema, records: records}
}

// RowError 单行导入失败信息
type RowError struct {
	Row   int    `json:"row" example:"3"` // 文件内行号，含表头偏移
	Error string `json:"error"`
}

// ImportResult 导入结果
type ImportResult struct {
	Imported int        `json:"imported" example:"2"`
	Errors   []RowError `json:"errors"`
}

// ExportResult 导出结果，Headers与每行值一一对应
type ExportResult struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ImportRows 按文件顺序逐行导入
// 单行失败只记录错误并继续，不中断批次
func (s *TransferService) ImportRows(tableID string, rows []map[string]interface{}, actorID string) (*ImportResult, error) {
	if _, err := s.schema.GetTable(tableID); err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []RowError{}}
	for i, row := range rows {
		if _, err := s.records.Insert(tableID, row, actorID); err != nil {
			result.Errors = append(result.Errors, RowError{
				Row:   importHeaderOffset + i,
				Error: err.Error(),
			})
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ExportAll 导出全部未删除记录
// 表头为 id + 当前表定义字段 + 时间戳列；不在当前表定义中的数据键（字段删除后的孤儿键）
// 静默忽略——导出反映当前结构而非历史数据形态
func (s *TransferService) ExportAll(tableID string) (*ExportResult, error) {
	table, err := s.schema.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	if err := s.db.
		Where("table_id = ? AND deleted_at IS NULL", tableID).
		Order("created_at DESC").
		Limit(exportRowLimit).
		Find(&records).Error; err != nil {
		return nil, err
	}

	headers := make([]string, 0, len(table.Fields)+3)
	headers = append(headers, "id")
	for i := range table.Fields {
		headers = append(headers, table.Fields[i].Name)
	}
	headers = append(headers, "created_at", "updated_at")

	rows := make([][]string, 0, len(records))
	for i := range records {
		record := &records[i]
		row := make([]string, 0, len(headers))
		row = append(row, record.ID)
		for j := range table.Fields {
			value, ok := record.Data[table.Fields[j].Name]
			if !ok || value == nil {
				row = append(row, "")
				continue
			}
			row = append(row, exportValue(value))
		}
		row = append(row, record.CreatedAt.Format(time.RFC3339), record.UpdatedAt.Format(time.RFC3339))
		rows = append(rows, row)
	}

	return &ExportResult{Headers: headers, Rows: rows}, nil
}

// exportValue 单元格取值转字符串
// 对象和数组（如relation字段存储的结构化取值）序列化为JSON文本，
// 避免cast把非标量静默渲染成空字符串、与缺失值无法区分
func exportValue(value interface{}) string {
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
	return cast.ToString(value)
}

/*
 * @module service/models/jsonb
 * @description 通用JSONB类型及字段/关联定义列表的数据库序列化实现
 * @architecture 数据访问层 - 自定义列类型
 * @dependencies database/sql/driver, encoding/json
 * @refs service/models/table_definition.go, service/models/record.go
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// 通用 JSON 类型
type JSONB map[string]interface{}

// FieldDefinitionList 字段定义列表的 JSONB 类型
type FieldDefinitionList []FieldDefinition

// RelationDefinitionList 关联定义列表的 JSONB 类型
type RelationDefinitionList []RelationDefinition

func scanJSONB(value interface{}, dest interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, dest)
}

// valueJSONB 序列化为字符串而非[]byte，postgres与sqlite的json函数都能直接处理
func valueJSONB(v interface{}) (driver.Value, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// 实现 Scanner 接口
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSONB(value, j)
}

// 实现 Valuer 接口
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return valueJSONB(JSONB{})
	}
	return valueJSONB(j)
}

// FieldDefinitionList 的 Scanner 接口实现
func (l *FieldDefinitionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSONB(value, l)
}

// FieldDefinitionList 的 Valuer 接口实现
func (l FieldDefinitionList) Value() (driver.Value, error) {
	if l == nil {
		return valueJSONB([]FieldDefinition{})
	}
	return valueJSONB(l)
}

// RelationDefinitionList 的 Scanner 接口实现
func (l *RelationDefinitionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSONB(value, l)
}

// RelationDefinitionList 的 Valuer 接口实现
func (l RelationDefinitionList) Value() (driver.Value, error) {
	if l == nil {
		return valueJSONB([]RelationDefinition{})
	}
	return valueJSONB(l)
}

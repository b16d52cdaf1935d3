/*
 * @module service/dynamic_table/validator
 * @description 字段校验器：按表定义对记录载荷做必填、类型、约束检查并输出规范化载荷
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 载荷 -> 必填检查 -> 逐字段类型/约束检查 -> 规范化载荷或ValidationError
 * @rules 可选字段值为nil时跳过检查且不做类型转换；错误信息引用字段displayName；
 *        relation/computed类型不做直接值校验（computed值在校验后统一覆盖）
 * @dependencies flexdata-service/service/models, github.com/spf13/cast
 * @refs service/dynamic_table/record_service.go
 */

package dynamic_table

import (
	"fmt"
	"regexp"

	"flexdata-service/service/models"
	"flexdata-service/service/utils"

	"github.com/spf13/cast"
)

// 数字字段接受的字符串形式
var numberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// FieldValidator 字段校验器
type FieldValidator struct{}

// NewFieldValidator 创建字段校验器实例
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate 按字段定义列表校验载荷，返回规范化后的载荷副本
// 规范化规则：number统一为float64，boolean统一为bool，其余类型保持原值
func (v *FieldValidator) Validate(fields []models.FieldDefinition, payload map[string]interface{}) (map[string]interface{}, error) {
	normalized := make(map[string]interface{}, len(payload))
	for k, val := range payload {
		normalized[k] = val
	}

	for i := range fields {
		field := &fields[i]
		value, present := payload[field.Name]

		// 必填：值不允许缺失、为nil或为空字符串
		if field.Required {
			if !present || value == nil || value == "" {
				return nil, NewValidationError(displayName(field), value, "必填字段不能为空")
			}
		}

		// 可选字段缺失或为nil时跳过后续检查，不做任何类型转换
		if !present || value == nil {
			continue
		}

		checked, err := v.checkField(field, value)
		if err != nil {
			return nil, err
		}
		normalized[field.Name] = checked
	}

	return normalized, nil
}

// checkField 单字段类型与约束检查，返回规范化后的值
func (v *FieldValidator) checkField(field *models.FieldDefinition, value interface{}) (interface{}, error) {
	switch field.Type {
	case models.FieldTypeNumber:
		return v.checkNumber(field, value)
	case models.FieldTypeBoolean:
		return v.checkBoolean(field, value)
	case models.FieldTypeDate:
		return v.checkDate(field, value)
	case models.FieldTypeText:
		return v.checkText(field, value)
	case models.FieldTypeRelation, models.FieldTypeComputed:
		// relation不做直接值校验；computed的调用方取值在校验后被覆盖
		return value, nil
	default:
		return value, nil
	}
}

// checkNumber 接受原生数值或形如 ^\d+(\.\d+)?$ 的字符串，检查min/max数值区间（含边界）
func (v *FieldValidator) checkNumber(field *models.FieldDefinition, value interface{}) (interface{}, error) {
	var num float64

	switch tv := value.(type) {
	case string:
		if !numberPattern.MatchString(tv) {
			return nil, NewValidationError(displayName(field), value, "不是有效的数字")
		}
		num = cast.ToFloat64(tv)
	case bool:
		// cast会把布尔值转成0/1，这里明确拒绝
		return nil, NewValidationError(displayName(field), value, "不是有效的数字")
	default:
		parsed, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, NewValidationError(displayName(field), value, "不是有效的数字")
		}
		num = parsed
	}

	if rule := field.Validation; rule != nil {
		if rule.Min != nil && num < *rule.Min {
			return nil, NewValidationError(displayName(field), value, fmt.Sprintf("不能小于 %v", *rule.Min))
		}
		if rule.Max != nil && num > *rule.Max {
			return nil, NewValidationError(displayName(field), value, fmt.Sprintf("不能大于 %v", *rule.Max))
		}
	}
	return num, nil
}

// checkBoolean 接受布尔值或字面量"true"/"false"
func (v *FieldValidator) checkBoolean(field *models.FieldDefinition, value interface{}) (interface{}, error) {
	switch tv := value.(type) {
	case bool:
		return tv, nil
	case string:
		if tv == "true" {
			return true, nil
		}
		if tv == "false" {
			return false, nil
		}
	}
	return nil, NewValidationError(displayName(field), value, "不是有效的布尔值")
}

// checkDate 接受字符串形式可解析为日期时间的任意值，保持原值存储
func (v *FieldValidator) checkDate(field *models.FieldDefinition, value interface{}) (interface{}, error) {
	str, err := cast.ToStringE(value)
	if err != nil {
		return nil, NewValidationError(displayName(field), value, "不是有效的日期")
	}
	if _, err := utils.ParseTime(str); err != nil {
		return nil, NewValidationError(displayName(field), value, "不是有效的日期")
	}
	return value, nil
}

// checkText 必须为字符串，min/max为长度区间，pattern为正则匹配
func (v *FieldValidator) checkText(field *models.FieldDefinition, value interface{}) (interface{}, error) {
	str, ok := value.(string)
	if !ok {
		return nil, NewValidationError(displayName(field), value, "不是有效的文本")
	}

	if rule := field.Validation; rule != nil {
		length := float64(len([]rune(str)))
		if rule.Min != nil && length < *rule.Min {
			return nil, NewValidationError(displayName(field), value, fmt.Sprintf("长度不能小于 %v", *rule.Min))
		}
		if rule.Max != nil && length > *rule.Max {
			return nil, NewValidationError(displayName(field), value, fmt.Sprintf("长度不能大于 %v", *rule.Max))
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, NewValidationError(displayName(field), value, "校验规则中的正则表达式无效")
			}
			if !re.MatchString(str) {
				return nil, NewValidationError(displayName(field), value, "格式不匹配")
			}
		}
	}
	return str, nil
}

// displayName 错误信息优先引用字段显示名
func displayName(field *models.FieldDefinition) string {
	if field.DisplayName != "" {
		return field.DisplayName
	}
	return field.Name
}

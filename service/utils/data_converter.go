/*
 * @module service/utils/data_converter
 * @description 数据转换工具：多格式时间解析、字符集转换，供字段校验和批量导入使用
 * @architecture 工具函数模式，无状态转换
 * @rules 时间解析按候选格式逐一尝试；编码转换仅支持GBK/GB2312与UTF-8互转，其余原样返回
 * @dependencies golang.org/x/text, time
 * @refs service/dynamic_table/validator.go, api/controllers/transfer_controller.go
 */

package utils

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// 时间字段接受的候选格式
var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTime 解析时间字符串，按候选格式逐一尝试
func ParseTime(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, fmt.Errorf("时间字符串为空")
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间字符串: %s", timeStr)
}

// ConvertEncoding 字符集转换，用于导入GBK编码的CSV文件
func ConvertEncoding(data []byte, fromEncoding, toEncoding string) ([]byte, error) {
	from := strings.ToLower(fromEncoding)
	to := strings.ToLower(toEncoding)

	switch {
	case (from == "gbk" || from == "gb2312") && to == "utf-8":
		decoder := simplifiedchinese.GBK.NewDecoder()
		result, _, err := transform.Bytes(decoder, data)
		return result, err
	case from == "utf-8" && (to == "gbk" || to == "gb2312"):
		encoder := simplifiedchinese.GBK.NewEncoder()
		result, _, err := transform.Bytes(encoder, data)
		return result, err
	}

	// 不需要转换或不支持的编码，返回原数据
	return data, nil
}

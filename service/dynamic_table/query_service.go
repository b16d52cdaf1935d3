/*
 * @module service/dynamic_table/query_service
 * @description 动态表记录查询服务：等值过滤、排序和分页
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 查询请求 -> 过滤值规范化 -> JSON类型化等值谓词 -> 总数统计 -> 取页 -> （页内）排序
 * @rules 过滤仅支持精确等值，过滤值先按字段定义做与写入路径一致的规范化，再按JSON类型比较，
 *        数字和布尔取值不会退化为文本比较；隐含deleted_at IS NULL谓词；存储层仅按创建/更新
 *        时间排序，按业务字段排序时只对已取出的当前页重排，跨页不保证全局有序（既有契约，由测试钉住）
 * @dependencies flexdata-service/service/models, gorm.io/gorm, github.com/spf13/cast
 * @refs service/dynamic_table/record_service.go
 */

package dynamic_table

import (
	"encoding/json"
	"math"
	"sort"

	"flexdata-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// QueryService 动态表记录查询服务
type QueryService struct {
	db        *gorm.DB
	schema    *SchemaService
	validator *FieldValidator
}

// NewQueryService 创建查询服务实例
func NewQueryService(db *gorm.DB, schema *SchemaService) *QueryService {
	return &QueryService{db: db, schema: schema, validator: NewFieldValidator()}
}

// SortOption 排序选项
type SortOption struct {
	Field string `json:"field" example:"created_at"`
	Order string `json:"order" example:"asc"` // asc, desc
}

// QueryOptions 查询选项
type QueryOptions struct {
	Filters map[string]interface{} `json:"filters,omitempty"` // 字段名 -> 精确匹配值
	Sort    *SortOption            `json:"sort,omitempty"`
	Page    int                    `json:"page" example:"1"`
	Limit   int                    `json:"limit" example:"20"`
}

// QueryResult 查询结果
type QueryResult struct {
	Records    []models.Record `json:"records"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}

// Query 过滤、排序并分页查询表记录
func (s *QueryService) Query(tableID string, opts QueryOptions) (*QueryResult, error) {
	table, err := s.schema.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = defaultPageSize
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}

	query := s.db.Model(&models.Record{}).
		Where("table_id = ? AND deleted_at IS NULL", tableID)
	for key, value := range opts.Filters {
		clause, arg := jsonFieldPredicate(s.db, key, s.normalizeFilterValue(table, key, value))
		query = query.Where(clause, arg)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// 仅时间戳字段下推到存储层排序，其余情形按创建时间倒序取页
	orderBy := "created_at DESC"
	inPageSort := false
	if opts.Sort != nil && opts.Sort.Field != "" {
		switch opts.Sort.Field {
		case "created_at", "updated_at":
			orderBy = opts.Sort.Field + " " + sortDirection(opts.Sort.Order)
		default:
			inPageSort = true
		}
	}

	var records []models.Record
	offset := (opts.Page - 1) * opts.Limit
	if err := query.Order(orderBy).Offset(offset).Limit(opts.Limit).Find(&records).Error; err != nil {
		return nil, err
	}

	// 业务字段排序只作用于已取出的当前页
	if inPageSort {
		sortRecordsByField(records, opts.Sort.Field, opts.Sort.Order)
	}

	return &QueryResult{
		Records:    records,
		Total:      total,
		Page:       opts.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.Limit))),
	}, nil
}

// normalizeFilterValue 过滤值按字段定义做与写入路径一致的规范化
// 写入时"88"被存成数字88，过滤时同样的取值形式必须命中同一记录；
// 规范化失败的取值保持原样，等值比较自然落空
func (s *QueryService) normalizeFilterValue(table *models.TableDefinition, key string, value interface{}) interface{} {
	field := table.FieldByName(key)
	if field == nil || value == nil {
		return value
	}
	checked, err := s.validator.checkField(field, value)
	if err != nil {
		return value
	}
	return checked
}

// jsonFieldPredicate 生成JSON类型化的等值谓词，按方言区分语法
// 过滤值序列化为JSON后在存储层按JSON值比较，数字88与文本"88"不会互相误配
func jsonFieldPredicate(db *gorm.DB, key string, value interface{}) (string, interface{}) {
	encoded, err := json.Marshal(value)
	if err != nil {
		encoded = []byte("null")
	}

	path := sanitizeJSONKey(key)
	if db.Dialector.Name() == "postgres" {
		return "data -> '" + path + "' = ?::jsonb", string(encoded)
	}
	return "json_extract(data, '$." + path + "') = json_extract(?, '$')", string(encoded)
}

// sanitizeJSONKey 数据键直接拼入SQL的JSON路径，仅放行合法字段名字符
func sanitizeJSONKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, c := range key {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	return string(out)
}

func sortDirection(order string) string {
	if order == "desc" {
		return "DESC"
	}
	return "ASC"
}

// sortRecordsByField 页内排序：数值可比时按数值，否则按字符串
func sortRecordsByField(records []models.Record, field, order string) {
	desc := order == "desc"
	sort.SliceStable(records, func(i, j int) bool {
		less := valueLess(records[i].Data[field], records[j].Data[field])
		if desc {
			return valueLess(records[j].Data[field], records[i].Data[field])
		}
		return less
	})
}

func valueLess(a, b interface{}) bool {
	af, aerr := cast.ToFloat64E(a)
	bf, berr := cast.ToFloat64E(b)
	if aerr == nil && berr == nil {
		return af < bf
	}
	return cast.ToString(a) < cast.ToString(b)
}

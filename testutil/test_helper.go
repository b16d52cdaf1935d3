/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数：内存数据库与测试数据工厂
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"flexdata-service/service/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.TableDefinition{},
		&models.Record{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"table_definitions",
		"records",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// TableDefinitionOption 表定义选项函数类型
type TableDefinitionOption func(*models.TableDefinition)

// WithTenant 指定租户
func WithTenant(tenantID string) TableDefinitionOption {
	return func(td *models.TableDefinition) {
		td.TenantID = tenantID
	}
}

// WithName 指定英文名
func WithName(name string) TableDefinitionOption {
	return func(td *models.TableDefinition) {
		td.Name = name
	}
}

// WithFields 指定字段列表
func WithFields(fields ...models.FieldDefinition) TableDefinitionOption {
	return func(td *models.TableDefinition) {
		td.Fields = fields
	}
}

// CreateTableDefinition 创建测试表定义
func (f *TestDataFactory) CreateTableDefinition(opts ...TableDefinitionOption) *models.TableDefinition {
	table := &models.TableDefinition{
		ID:          uuid.New().String(),
		TenantID:    "tenant_test",
		Name:        "test_table_" + generateSuffix(),
		DisplayName: "测试数据表",
		Description: "这是一个测试数据表",
		Fields:      models.FieldDefinitionList{},
		Relations:   models.RelationDefinitionList{},
		CreatedBy:   "test",
		UpdatedBy:   "test",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(table)
	}

	if err := f.DB.Create(table).Error; err != nil {
		panic(fmt.Sprintf("failed to create test table definition: %v", err))
	}
	return table
}

// TextField 构造文本字段定义
func TextField(name string, required bool) models.FieldDefinition {
	return models.FieldDefinition{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: name,
		Type:        models.FieldTypeText,
		Required:    required,
	}
}

// NumberField 构造数字字段定义
func NumberField(name string, min, max *float64) models.FieldDefinition {
	field := models.FieldDefinition{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: name,
		Type:        models.FieldTypeNumber,
	}
	if min != nil || max != nil {
		field.Validation = &models.FieldValidation{Min: min, Max: max}
	}
	return field
}

// BooleanField 构造布尔字段定义
func BooleanField(name string) models.FieldDefinition {
	return models.FieldDefinition{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: name,
		Type:        models.FieldTypeBoolean,
	}
}

// ComputedField 构造计算字段定义
func ComputedField(name, formula string) models.FieldDefinition {
	return models.FieldDefinition{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: name,
		Type:        models.FieldTypeComputed,
		Formula:     formula,
	}
}

// Float64Ptr 浮点数指针辅助
func Float64Ptr(v float64) *float64 {
	return &v
}

// CreateRecord 直接创建测试记录（绕过校验流程）
func (f *TestDataFactory) CreateRecord(tableID string, data models.JSONB) *models.Record {
	record := &models.Record{
		ID:      uuid.New().String(),
		TableID: tableID,
		Data:    data,
	}
	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test record: %v", err))
	}
	return record
}

// 辅助函数
func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

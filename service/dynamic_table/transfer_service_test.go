/*
 * @module service/dynamic_table/transfer_service_test
 * @description 批量导入导出引擎单元测试
 * @architecture 测试层 - 基于内存数据库的业务逻辑测试
 * @stateFlow 行集导入 -> 逐行结果验证; 记录集导出 -> 表头与投影验证
 * @rules 覆盖部分失败容忍、行号偏移、孤儿数据键忽略和软删除记录排除
 * @dependencies testing, testify, flexdata-service/testutil
 * @refs transfer_service.go, record_service.go
 */

package dynamic_table

import (
	"testing"

	"flexdata-service/service/models"
	"flexdata-service/testutil"

	"github.com/stretchr/testify/suite"
)

// TransferServiceTestSuite 批量导入导出引擎测试套件
type TransferServiceTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDB
	factory *testutil.TestDataFactory
	schema  *SchemaService
	records *RecordService
	service *TransferService
}

// SetupSuite 设置测试套件
func (suite *TransferServiceTestSuite) SetupSuite() {
	suite.testDB = testutil.NewTestDB()
	suite.factory = testutil.NewTestDataFactory(suite.testDB.DB)
	lock := NewMemoryTableLock()
	suite.schema = NewSchemaService(suite.testDB.DB, lock)
	suite.records = NewRecordService(suite.testDB.DB, suite.schema, lock)
	suite.service = NewTransferService(suite.testDB.DB, suite.schema, suite.records)
}

// TearDownSuite 清理测试套件
func (suite *TransferServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

// SetupTest 每个测试前清理数据
func (suite *TransferServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

// importTable 构造带必填姓名和范围分数的测试表
func (suite *TransferServiceTestSuite) importTable() *models.TableDefinition {
	return suite.factory.CreateTableDefinition(
		testutil.WithFields(
			testutil.TextField("name", true),
			testutil.NumberField("score", testutil.Float64Ptr(0), testutil.Float64Ptr(100)),
		),
	)
}

// TestImportAllRows 全部行导入成功
func (suite *TransferServiceTestSuite) TestImportAllRows() {
	table := suite.importTable()

	result, err := suite.service.ImportRows(table.ID, []map[string]interface{}{
		{"name": "张三", "score": "90"},
		{"name": "李四", "score": "85"},
	}, "user_1")
	suite.NoError(err)
	suite.Equal(2, result.Imported)
	suite.Empty(result.Errors)

	var count int64
	suite.testDB.DB.Model(&models.Record{}).Where("table_id = ?", table.ID).Count(&count)
	suite.Equal(int64(2), count)
}

// TestImportPartialFailure 单行失败只记录错误并继续，行号含表头偏移
func (suite *TransferServiceTestSuite) TestImportPartialFailure() {
	table := suite.importTable()

	result, err := suite.service.ImportRows(table.ID, []map[string]interface{}{
		{"name": "张三", "score": "90"},
		{"score": "85"}, // 缺少必填的name
		{"name": "王五", "score": "70"},
	}, "user_1")
	suite.NoError(err, "部分失败不构成批次错误")
	suite.Equal(2, result.Imported)
	suite.Len(result.Errors, 1)
	// 第1行为表头，首个数据行为第2行，失败的是第3行
	suite.Equal(3, result.Errors[0].Row)
	suite.NotEmpty(result.Errors[0].Error)

	var count int64
	suite.testDB.DB.Model(&models.Record{}).Where("table_id = ?", table.ID).Count(&count)
	suite.Equal(int64(2), count, "成功的行已持久化，失败的行被跳过")
}

// TestImportAllRowsFail 全部行失败时导入数为0
func (suite *TransferServiceTestSuite) TestImportAllRowsFail() {
	table := suite.importTable()

	result, err := suite.service.ImportRows(table.ID, []map[string]interface{}{
		{"score": "90"},
		{"name": "张三", "score": "999"},
	}, "user_1")
	suite.NoError(err)
	suite.Equal(0, result.Imported)
	suite.Len(result.Errors, 2)
	suite.Equal(2, result.Errors[0].Row)
	suite.Equal(3, result.Errors[1].Row)
}

// TestImportTableNotFound 向不存在的表导入
func (suite *TransferServiceTestSuite) TestImportTableNotFound() {
	_, err := suite.service.ImportRows("no-such-table", []map[string]interface{}{
		{"name": "张三"},
	}, "user_1")
	suite.Error(err)

	var nfe *NotFoundError
	suite.ErrorAs(err, &nfe)
}

// TestExportHeadersAndProjection 导出表头为id+当前字段+时间戳列，按当前结构投影
func (suite *TransferServiceTestSuite) TestExportHeadersAndProjection() {
	table := suite.importTable()
	record := suite.factory.CreateRecord(table.ID, models.JSONB{
		"name":       "张三",
		"score":      float64(90),
		"old_field":  "字段删除后遗留的孤儿键",
		"legacy_key": float64(1),
	})

	result, err := suite.service.ExportAll(table.ID)
	suite.NoError(err)
	suite.Equal([]string{"id", "name", "score", "created_at", "updated_at"}, result.Headers)
	suite.Len(result.Rows, 1)

	row := result.Rows[0]
	suite.Len(row, len(result.Headers), "每行值与表头一一对应")
	suite.Equal(record.ID, row[0])
	suite.Equal("张三", row[1])
	suite.Equal("90", row[2])
	suite.NotEmpty(row[3])
	suite.NotEmpty(row[4])
}

// TestExportMissingValueAsEmpty 缺失或为nil的字段导出为空字符串
func (suite *TransferServiceTestSuite) TestExportMissingValueAsEmpty() {
	table := suite.importTable()
	suite.factory.CreateRecord(table.ID, models.JSONB{"name": "张三"})
	suite.factory.CreateRecord(table.ID, models.JSONB{"name": "李四", "score": nil})

	result, err := suite.service.ExportAll(table.ID)
	suite.NoError(err)
	suite.Len(result.Rows, 2)
	for _, row := range result.Rows {
		suite.Equal("", row[2], "score列应为空字符串")
	}
}

// TestExportStructuredValueAsJSON 对象/数组取值导出为JSON文本而非空字符串
func (suite *TransferServiceTestSuite) TestExportStructuredValueAsJSON() {
	parent := models.FieldDefinition{
		ID: "rel_1", Name: "parent", DisplayName: "parent",
		Type: models.FieldTypeRelation,
	}
	table := suite.factory.CreateTableDefinition(
		testutil.WithFields(testutil.TextField("name", true), parent),
	)
	suite.factory.CreateRecord(table.ID, models.JSONB{
		"name":   "张三",
		"parent": map[string]interface{}{"table": "departments", "id": "d_1"},
	})

	result, err := suite.service.ExportAll(table.ID)
	suite.NoError(err)
	suite.Equal([]string{"id", "name", "parent", "created_at", "updated_at"}, result.Headers)
	suite.Len(result.Rows, 1)

	cell := result.Rows[0][2]
	suite.NotEmpty(cell, "结构化取值不能与缺失值混同")
	suite.JSONEq(`{"table":"departments","id":"d_1"}`, cell)
}

// TestExportExcludesSoftDeleted 软删除记录不参与导出
func (suite *TransferServiceTestSuite) TestExportExcludesSoftDeleted() {
	table := suite.importTable()
	kept := suite.factory.CreateRecord(table.ID, models.JSONB{"name": "张三"})
	deleted := suite.factory.CreateRecord(table.ID, models.JSONB{"name": "李四"})

	suite.NoError(suite.records.SoftDelete(table.ID, deleted.ID))

	result, err := suite.service.ExportAll(table.ID)
	suite.NoError(err)
	suite.Len(result.Rows, 1)
	suite.Equal(kept.ID, result.Rows[0][0])
}

// TestExportEmptyTable 空表导出仅含表头
func (suite *TransferServiceTestSuite) TestExportEmptyTable() {
	table := suite.importTable()

	result, err := suite.service.ExportAll(table.ID)
	suite.NoError(err)
	suite.Equal([]string{"id", "name", "score", "created_at", "updated_at"}, result.Headers)
	suite.Empty(result.Rows)
}

func TestTransferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}

/*
 * @module service/dynamic_table/schema_service_test
 * @description 表结构管理服务单元测试
 * @architecture 测试层 - 基于内存数据库的业务逻辑测试
 * @stateFlow 服务方法调用 -> 内存数据库交互 -> 结构文档验证
 * @rules 覆盖表名/字段名格式约束、租户隔离、结构软演化行为
 * @dependencies testing, testify, flexdata-service/testutil
 * @refs schema_service.go, models/table_definition.go
 */

package dynamic_table

import (
	"testing"

	"flexdata-service/service/models"
	"flexdata-service/testutil"

	"github.com/stretchr/testify/suite"
)

// SchemaServiceTestSuite 表结构管理服务测试套件
type SchemaServiceTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDB
	factory *testutil.TestDataFactory
	service *SchemaService
}

// SetupSuite 设置测试套件
func (suite *SchemaServiceTestSuite) SetupSuite() {
	suite.testDB = testutil.NewTestDB()
	suite.factory = testutil.NewTestDataFactory(suite.testDB.DB)
	suite.service = NewSchemaService(suite.testDB.DB, NewMemoryTableLock())
}

// TearDownSuite 清理测试套件
func (suite *SchemaServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

// SetupTest 每个测试前清理数据
func (suite *SchemaServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

// TestCreateTable 测试创建表定义
func (suite *SchemaServiceTestSuite) TestCreateTable() {
	table, err := suite.service.CreateTable("tenant_a", "customers", "客户表", "客户主数据", "user_1")
	suite.NoError(err)
	suite.NotEmpty(table.ID)
	suite.Equal("tenant_a", table.TenantID)
	suite.Equal("customers", table.Name)
	suite.Equal("user_1", table.CreatedBy)
	suite.Empty(table.Fields)
	suite.Empty(table.Relations)
}

// TestCreateTableInvalidName 测试非法表名格式
func (suite *SchemaServiceTestSuite) TestCreateTableInvalidName() {
	for _, name := range []string{"", "1customers", "Customers", "has-dash", "has space", "中文名"} {
		_, err := suite.service.CreateTable("tenant_a", name, "", "", "user_1")
		suite.Error(err, "表名 %q 应被拒绝", name)

		var verr *ValidationError
		suite.ErrorAs(err, &verr)
		suite.Equal("name", verr.Field)
	}
}

// TestCreateTableDuplicateNameSameTenant 测试同租户下同名表冲突
func (suite *SchemaServiceTestSuite) TestCreateTableDuplicateNameSameTenant() {
	_, err := suite.service.CreateTable("tenant_a", "orders", "订单表", "", "user_1")
	suite.NoError(err)

	_, err = suite.service.CreateTable("tenant_a", "orders", "另一个订单表", "", "user_1")
	suite.Error(err)

	var verr *ValidationError
	suite.ErrorAs(err, &verr)
	suite.Equal("name", verr.Field)
}

// TestCreateTableSameNameDifferentTenant 测试不同租户可使用同名表
func (suite *SchemaServiceTestSuite) TestCreateTableSameNameDifferentTenant() {
	tableA, err := suite.service.CreateTable("tenant_a", "orders", "订单表", "", "user_1")
	suite.NoError(err)

	tableB, err := suite.service.CreateTable("tenant_b", "orders", "订单表", "", "user_2")
	suite.NoError(err)
	suite.NotEqual(tableA.ID, tableB.ID)
}

// TestGetTableNotFound 测试获取不存在的表
func (suite *SchemaServiceTestSuite) TestGetTableNotFound() {
	_, err := suite.service.GetTable("no-such-id")
	suite.Error(err)

	var nfe *NotFoundError
	suite.ErrorAs(err, &nfe)
}

// TestListTables 测试按租户分页列出表定义
func (suite *SchemaServiceTestSuite) TestListTables() {
	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := suite.service.CreateTable("tenant_a", name, "", "", "user_1")
		suite.NoError(err)
	}
	_, err := suite.service.CreateTable("tenant_b", "delta", "", "", "user_2")
	suite.NoError(err)

	tables, total, err := suite.service.ListTables("tenant_a", 1, 2)
	suite.NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(tables, 2)

	tables, total, err = suite.service.ListTables("tenant_b", 1, 10)
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(tables, 1)
	suite.Equal("delta", tables[0].Name)
}

// TestAddField 测试追加字段
func (suite *SchemaServiceTestSuite) TestAddField() {
	table := suite.factory.CreateTableDefinition(testutil.WithName("products"))

	field, err := suite.service.AddField(table.ID, FieldSpec{
		Name:        "price",
		DisplayName: "单价",
		Type:        models.FieldTypeNumber,
		Required:    true,
	}, "user_1")
	suite.NoError(err)
	suite.NotEmpty(field.ID)
	suite.Equal("price", field.Name)

	reloaded, err := suite.service.GetTable(table.ID)
	suite.NoError(err)
	suite.Len(reloaded.Fields, 1)
	suite.Equal(models.FieldTypeNumber, reloaded.Fields[0].Type)
	suite.True(reloaded.Fields[0].Required)
}

// TestAddFieldValidation 测试字段名格式、类型和重名校验
func (suite *SchemaServiceTestSuite) TestAddFieldValidation() {
	table := suite.factory.CreateTableDefinition(
		testutil.WithFields(testutil.TextField("name", true)),
	)

	// 非法字段名
	_, err := suite.service.AddField(table.ID, FieldSpec{Name: "BadName", Type: models.FieldTypeText}, "user_1")
	var verr *ValidationError
	suite.ErrorAs(err, &verr)
	suite.Equal("name", verr.Field)

	// 不支持的类型
	_, err = suite.service.AddField(table.ID, FieldSpec{Name: "whatever", Type: "geometry"}, "user_1")
	suite.ErrorAs(err, &verr)
	suite.Equal("type", verr.Field)

	// computed类型缺少formula
	_, err = suite.service.AddField(table.ID, FieldSpec{Name: "greeting", Type: models.FieldTypeComputed}, "user_1")
	suite.ErrorAs(err, &verr)
	suite.Equal("formula", verr.Field)

	// 同名字段
	_, err = suite.service.AddField(table.ID, FieldSpec{Name: "name", Type: models.FieldTypeText}, "user_1")
	suite.ErrorAs(err, &verr)
	suite.Equal("name", verr.Field)
}

// TestUpdateFieldMerge 测试字段合并修改，未提供的属性保持不变
func (suite *SchemaServiceTestSuite) TestUpdateFieldMerge() {
	field := testutil.TextField("email", false)
	table := suite.factory.CreateTableDefinition(testutil.WithFields(field))

	display := "邮箱地址"
	required := true
	updated, err := suite.service.UpdateField(table.ID, field.ID, FieldPatch{
		DisplayName: &display,
		Required:    &required,
	}, "user_1")
	suite.NoError(err)
	suite.Equal("邮箱地址", updated.DisplayName)
	suite.True(updated.Required)
	// id、name和type未被修改
	suite.Equal(field.ID, updated.ID)
	suite.Equal("email", updated.Name)
	suite.Equal(models.FieldTypeText, updated.Type)
}

// TestUpdateFieldNotFound 测试修改不存在的字段
func (suite *SchemaServiceTestSuite) TestUpdateFieldNotFound() {
	table := suite.factory.CreateTableDefinition()

	display := "不存在的"
	_, err := suite.service.UpdateField(table.ID, "no-such-field", FieldPatch{DisplayName: &display}, "user_1")
	suite.Error(err)

	var nfe *NotFoundError
	suite.ErrorAs(err, &nfe)
}

// TestDeleteFieldKeepsRecordData 测试字段删除仅作用于结构文档
// 已存记录中的数据键不被清理，导出和校验阶段按当前结构自然忽略
func (suite *SchemaServiceTestSuite) TestDeleteFieldKeepsRecordData() {
	field := testutil.TextField("nickname", false)
	table := suite.factory.CreateTableDefinition(testutil.WithFields(field))
	record := suite.factory.CreateRecord(table.ID, models.JSONB{"nickname": "老王"})

	err := suite.service.DeleteField(table.ID, field.ID, "user_1")
	suite.NoError(err)

	reloaded, err := suite.service.GetTable(table.ID)
	suite.NoError(err)
	suite.Empty(reloaded.Fields)

	// 记录数据保持原样
	var stored models.Record
	suite.NoError(suite.testDB.DB.First(&stored, "id = ?", record.ID).Error)
	suite.Equal("老王", stored.Data["nickname"])
}

// TestCreateRelation 测试创建表间关联
func (suite *SchemaServiceTestSuite) TestCreateRelation() {
	source := suite.factory.CreateTableDefinition(
		testutil.WithName("orders"),
		testutil.WithFields(testutil.TextField("customer_id", true)),
	)
	target := suite.factory.CreateTableDefinition(
		testutil.WithName("customers"),
		testutil.WithFields(testutil.TextField("code", true)),
	)

	relation, err := suite.service.CreateRelation(source.ID, RelationSpec{
		Type:      models.RelationManyToOne,
		ToTable:   target.ID,
		FromField: "customer_id",
		ToField:   "code",
	}, "user_1")
	suite.NoError(err)
	suite.NotEmpty(relation.ID)
	suite.Equal(source.ID, relation.FromTable)
	suite.Equal(target.ID, relation.ToTable)
}

// TestCreateRelationValidation 测试关联两端的存在性校验
func (suite *SchemaServiceTestSuite) TestCreateRelationValidation() {
	source := suite.factory.CreateTableDefinition(
		testutil.WithFields(testutil.TextField("ref", false)),
	)
	target := suite.factory.CreateTableDefinition(
		testutil.WithFields(testutil.TextField("code", false)),
	)

	// 目标表不存在
	_, err := suite.service.CreateRelation(source.ID, RelationSpec{
		Type: models.RelationOneToMany, ToTable: "no-such-table", FromField: "ref", ToField: "code",
	}, "user_1")
	var nfe *NotFoundError
	suite.ErrorAs(err, &nfe)

	// 源字段不存在
	_, err = suite.service.CreateRelation(source.ID, RelationSpec{
		Type: models.RelationOneToMany, ToTable: target.ID, FromField: "missing", ToField: "code",
	}, "user_1")
	var verr *ValidationError
	suite.ErrorAs(err, &verr)
	suite.Equal("from_field", verr.Field)

	// 目标字段不存在
	_, err = suite.service.CreateRelation(source.ID, RelationSpec{
		Type: models.RelationOneToMany, ToTable: target.ID, FromField: "ref", ToField: "missing",
	}, "user_1")
	suite.ErrorAs(err, &verr)
	suite.Equal("to_field", verr.Field)

	// 不支持的关联类型
	_, err = suite.service.CreateRelation(source.ID, RelationSpec{
		Type: "graph", ToTable: target.ID, FromField: "ref", ToField: "code",
	}, "user_1")
	suite.ErrorAs(err, &verr)
	suite.Equal("type", verr.Field)
}

// TestRelationSurvivesFieldDeletion 测试字段删除后关联定义保留（悬空关联）
func (suite *SchemaServiceTestSuite) TestRelationSurvivesFieldDeletion() {
	fromField := testutil.TextField("ref", false)
	source := suite.factory.CreateTableDefinition(testutil.WithFields(fromField))
	target := suite.factory.CreateTableDefinition(
		testutil.WithFields(testutil.TextField("code", false)),
	)

	_, err := suite.service.CreateRelation(source.ID, RelationSpec{
		Type: models.RelationOneToOne, ToTable: target.ID, FromField: "ref", ToField: "code",
	}, "user_1")
	suite.NoError(err)

	err = suite.service.DeleteField(source.ID, fromField.ID, "user_1")
	suite.NoError(err)

	reloaded, err := suite.service.GetTable(source.ID)
	suite.NoError(err)
	suite.Empty(reloaded.Fields)
	suite.Len(reloaded.Relations, 1)
	suite.Equal("ref", reloaded.Relations[0].FromField)
}

func TestSchemaServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SchemaServiceTestSuite))
}

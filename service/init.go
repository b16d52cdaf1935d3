/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、表锁与各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；未配置Redis时降级为进程内表锁
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/dynamic_table
 */

package service

import (
	"fmt"
	"log"
	"os"

	"flexdata-service/logger"
	"flexdata-service/service/database"
	"flexdata-service/service/distributed_lock"
	"flexdata-service/service/dynamic_table"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                    *gorm.DB
	GlobalTableLock       dynamic_table.TableLocker
	GlobalSchemaService   *dynamic_table.SchemaService
	GlobalRecordService   *dynamic_table.RecordService
	GlobalQueryService    *dynamic_table.QueryService
	GlobalTransferService *dynamic_table.TransferService
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
}

// initServices 初始化服务
func initServices() {
	// 配置了REDIS_HOST时使用Redis表锁，跨实例串行化写入；否则使用进程内锁
	if os.Getenv("REDIS_HOST") != "" {
		redisLock, err := distributed_lock.NewRedisTableLock()
		if err != nil {
			log.Printf("Redis表锁初始化失败，降级为进程内锁: %v", err)
			GlobalTableLock = dynamic_table.NewMemoryTableLock()
		} else {
			GlobalTableLock = redisLock
		}
	} else {
		GlobalTableLock = dynamic_table.NewMemoryTableLock()
	}

	GlobalSchemaService = dynamic_table.NewSchemaService(DB, GlobalTableLock)
	GlobalRecordService = dynamic_table.NewRecordService(DB, GlobalSchemaService, GlobalTableLock)
	GlobalQueryService = dynamic_table.NewQueryService(DB, GlobalSchemaService)
	GlobalTransferService = dynamic_table.NewTransferService(DB, GlobalSchemaService, GlobalRecordService)

	log.Println("服务初始化完成")
}

/*
 * @module service/database/migrate
 * @description 数据库迁移模块，创建引擎自身的元数据表（表定义与记录存储）
 * @architecture 数据访问层 - 迁移管理
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 租户自定义表不做物理迁移，结构只存在于表定义文档中
 * @dependencies flexdata-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"flexdata-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移引擎元数据表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	err := db.AutoMigrate(
		&models.TableDefinition{},
		&models.Record{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

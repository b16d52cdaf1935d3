/*
 * @module service/models/record
 * @description 动态表记录模型，记录数据以JSONB文档存储，键为字段英文名
 * @architecture DDD领域驱动设计 - 实体模型
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dynamic_table/record_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record 动态表记录
// DeletedAt为软删除墓碑：已删除记录不参与查询、导出和唯一性扫描，但不做物理删除
type Record struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TableID   string     `json:"table_id" gorm:"not null;type:varchar(36);index"`
	Data      JSONB      `json:"data" gorm:"type:jsonb;not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	CreatedBy string     `json:"created_by" gorm:"size:100"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedBy string     `json:"updated_by" gorm:"size:100"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// IsDeleted 记录是否已被软删除
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

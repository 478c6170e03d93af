package app

import (
	"gorm.io/gorm"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

// AutoMigrate 自动执行数据库迁移
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.RiskRule{},
		&model.RiskAlert{},
		&model.RiskEvent{},
	)
}

package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"refeitorio-client/internal/model"
)

// Migrations lists the mirror schema changes in order.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20240502_create_mirror_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.Slot{},
					&model.PositionOpen{},
					&model.PositionHistory{},
					&model.PushSubscription{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("subscription_slot_mapping", "push_subscriptions",
					"position_histories", "position_opens", "slots")
			},
		},
		{
			ID: "20240510_index_position_history_by_slot",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_position_histories_slot_observed ON position_histories (slot_id, observed_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_position_histories_slot_observed`).Error
			},
		},
		{
			ID: "20240520_add_subscription_notify_statuses",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&model.PushSubscription{}, "Statuses") {
					return nil
				}
				return tx.Migrator().AddColumn(&model.PushSubscription{}, "Statuses")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&model.PushSubscription{}, "Statuses")
			},
		},
	}
}

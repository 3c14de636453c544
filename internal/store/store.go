package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"refeitorio-client/internal/model"
)

// Store defines the interface for all mirror database operations.
type Store interface {
	DB() *gorm.DB
	UpsertSlots(ctx context.Context, slots []model.Slot) error
	UpdatePositions(ctx context.Context, now time.Time, positions []model.QueuePosition, notify func(model.QueueStatus) bool) ([]model.PositionEvent, error)
	PositionHistory(ctx context.Context, slotID int64, limit int) ([]model.PositionHistory, error)
	OpenPositions(ctx context.Context) ([]model.PositionOpen, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpdatePositions mirrors the latest queue standings. A standing that
// changed or vanished is archived into history. The returned events are the
// status transitions accepted by notify.
func (s *gormStore) UpdatePositions(ctx context.Context, now time.Time, positions []model.QueuePosition, notify func(model.QueueStatus) bool) ([]model.PositionEvent, error) {
	currentOpen, err := s.fetchAllOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open positions: %w", err)
	}

	var events []model.PositionEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range positions {
			old, exists := currentOpen[p.SlotID]
			record := preparePosition(p, now)

			if exists {
				if !positionChanged(old, p) {
					delete(currentOpen, p.SlotID)
					continue
				}
				if err := archivePosition(tx, old, now); err != nil {
					return err
				}
				if err := tx.Save(&record).Error; err != nil {
					return fmt.Errorf("failed to update open position for slot %d: %w", p.SlotID, err)
				}
				if old.Status != p.Status && notify != nil && notify(p.Status) {
					events = append(events, newEvent(p, old.Status, now))
				}
				delete(currentOpen, p.SlotID)
				continue
			}

			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to create open position for slot %d: %w", p.SlotID, err)
			}
			if notify != nil && notify(p.Status) {
				events = append(events, newEvent(p, "", now))
			}
		}

		// Standings that are no longer reported: canceled, served or expired.
		for _, remaining := range currentOpen {
			if err := archivePosition(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.PositionOpen{}, remaining.SlotID).Error; err != nil {
				return fmt.Errorf("failed to delete open position for slot %d: %w", remaining.SlotID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func positionChanged(old model.PositionOpen, p model.QueuePosition) bool {
	return old.Position != p.Position ||
		old.Total != p.Total ||
		old.Status != p.Status ||
		old.Estimate != p.Estimate
}

func preparePosition(p model.QueuePosition, now time.Time) model.PositionOpen {
	return model.PositionOpen{
		SlotID:     p.SlotID,
		ObservedAt: now,
		Position:   p.Position,
		Total:      p.Total,
		Status:     p.Status,
		Estimate:   p.Estimate,
	}
}

func newEvent(p model.QueuePosition, previous model.QueueStatus, now time.Time) model.PositionEvent {
	return model.PositionEvent{
		SlotID:         p.SlotID,
		Position:       p.Position,
		Total:          p.Total,
		Status:         p.Status,
		PreviousStatus: previous,
		ObservedAt:     now,
	}
}

// archivePosition closes the period during which a standing held.
func archivePosition(tx *gorm.DB, open model.PositionOpen, observationTime time.Time) error {
	history := model.PositionHistory{
		SlotID:      open.SlotID,
		ObservedAt:  observationTime,
		Position:    open.Position,
		Total:       open.Total,
		Status:      open.Status,
		PeriodStart: open.ObservedAt,
		PeriodEnd:   observationTime,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to archive position for slot %d: %w", open.SlotID, err)
	}
	return nil
}

// UpsertSlots writes the slots that are new or changed since the last sync.
func (s *gormStore) UpsertSlots(ctx context.Context, slots []model.Slot) error {
	existing, err := s.fetchAllSlots(ctx)
	if err != nil {
		s.logger.Warn("could not pre-fetch slots", zap.Error(err))
		existing = make(map[int64]model.Slot)
	}

	var toUpsert []model.Slot
	for _, slot := range slots {
		if old, ok := existing[slot.ID]; ok && !slotChanged(old, slot) {
			continue
		}
		toUpsert = append(toUpsert, slot)
	}

	if len(toUpsert) == 0 {
		return nil
	}
	s.logger.Debug("batch upserting slots", zap.Int("count", len(toUpsert)))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"menu_id", "date", "shift", "main_dish", "remaining", "total_inscribed",
				"cutoff", "cutoff_at", "can_inscribe", "already_inscribed", "updated_at",
			}),
		}).Create(&toUpsert).Error
	})
}

func slotChanged(old, cur model.Slot) bool {
	if old.MenuID != cur.MenuID ||
		old.Date != cur.Date ||
		old.Shift != cur.Shift ||
		old.MainDish != cur.MainDish ||
		old.Remaining != cur.Remaining ||
		old.TotalInscribed != cur.TotalInscribed ||
		old.Cutoff != cur.Cutoff ||
		old.CanInscribe != cur.CanInscribe ||
		old.AlreadyInscribed != cur.AlreadyInscribed {
		return true
	}
	switch {
	case old.CutoffAt == nil && cur.CutoffAt == nil:
		return false
	case old.CutoffAt == nil || cur.CutoffAt == nil:
		return true
	default:
		return !old.CutoffAt.Equal(*cur.CutoffAt)
	}
}

// PositionHistory returns the archived standings of a slot, newest first.
func (s *gormStore) PositionHistory(ctx context.Context, slotID int64, limit int) ([]model.PositionHistory, error) {
	var history []model.PositionHistory
	q := s.db.WithContext(ctx).Where("slot_id = ?", slotID).Order("observed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (s *gormStore) OpenPositions(ctx context.Context) ([]model.PositionOpen, error) {
	var open []model.PositionOpen
	if err := s.db.WithContext(ctx).Order("slot_id").Find(&open).Error; err != nil {
		return nil, err
	}
	return open, nil
}

func (s *gormStore) fetchAllOpenPositions(ctx context.Context) (map[int64]model.PositionOpen, error) {
	var openRecords []model.PositionOpen
	if err := s.db.WithContext(ctx).Find(&openRecords).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[int64]model.PositionOpen, len(openRecords))
	for _, r := range openRecords {
		recordMap[r.SlotID] = r
	}
	return recordMap, nil
}

func (s *gormStore) fetchAllSlots(ctx context.Context) (map[int64]model.Slot, error) {
	var slots []model.Slot
	if err := s.db.WithContext(ctx).Find(&slots).Error; err != nil {
		return nil, err
	}
	slotMap := make(map[int64]model.Slot, len(slots))
	for _, sl := range slots {
		slotMap[sl.ID] = sl
	}
	return slotMap, nil
}

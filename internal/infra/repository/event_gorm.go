package repository

import (
	"context"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type eventGormRepository struct {
	db *gorm.DB
}

func NewEventGormRepository(db *gorm.DB) repo.EventRepository {
	return &eventGormRepository{db: db}
}

func (r *eventGormRepository) Append(ctx context.Context, e model.ProductEvent) (model.ProductEvent, error) {
	if err := db.Conn(ctx, r.db).Create(&e).Error; err != nil {
		return model.ProductEvent{}, err
	}
	return e, nil
}

func (r *eventGormRepository) List(ctx context.Context, filter repo.EventFilter) ([]model.ProductEvent, error) {
	q := db.Conn(ctx, r.db).Model(&model.ProductEvent{})

	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.AfterSeq > 0 {
		q = q.Where("seq > ?", filter.AfterSeq)
	}

	//古い順
	q = q.Order("seq ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q = q.Limit(limit)

	var events []model.ProductEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

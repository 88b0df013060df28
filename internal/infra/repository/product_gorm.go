package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) conn(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db)
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.conn(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// owner / purchased で絞り込み、id 昇順でページングして返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	products := []model.Product{}
	var total int64

	tx := r.conn(ctx).Model(&model.Product{})

	if q.Owner != "" {
		tx = tx.Where("owner = ?", q.Owner)
	}
	if q.Purchased != nil {
		tx = tx.Where("purchased = ?", *q.Purchased)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Order("id asc").Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// 商品の作成（id は台帳カウンタで採番済み）
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.conn(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 購入済みにする。purchased=false の行だけを対象にする
func (r *ProductGormRepository) MarkPurchased(ctx context.Context, id int64, buyer string) error {
	res := r.conn(ctx).Model(&model.Product{}).
		Where("id = ? AND purchased = ?", id, false).
		Updates(map[string]interface{}{
			"owner":     buyer,
			"purchased": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.conn(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

package model

import "time"

// 出品された商品。owner は出品者、購入後は購入者の identity token。
type Product struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	Owner     string    `gorm:"type:varchar(255);not null;index" json:"owner"`
	Purchased bool      `gorm:"not null;default:false;index" json:"purchased"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}


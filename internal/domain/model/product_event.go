package model

import "time"

// 台帳に対する操作の種類。
type EventType string

const (
	//出品
	EventProductCreated EventType = "ProductCreated"
	//購入（所有者の移転と送金）
	EventProductPurchased EventType = "ProductPurchased"
	//出品取り下げ
	EventProductRemoved EventType = "ProductRemoved"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventProductCreated, EventProductPurchased, EventProductRemoved:
		return true
	}
	return false
}

// ProductEvent is one row of the append-only ledger event log.
// Exactly one row is written per successful create/purchase/remove, in the
// same transaction as the mutation. Seq gives the log order.
type ProductEvent struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	EventID   string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	Type      EventType `gorm:"type:varchar(32);not null;index" json:"type"`
	ProductID int64     `gorm:"not null;index" json:"id"`
	Name      string    `gorm:"type:text" json:"name"`
	Price     int64     `gorm:"not null;default:0" json:"price"`
	Owner     string    `gorm:"type:varchar(255)" json:"owner"`
	Purchased bool      `gorm:"not null;default:false" json:"purchased"`
	Removed   bool      `gorm:"not null;default:false" json:"removed"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

package model

import "time"

// 決済残高。購入代金は出品者の Account に入金される。
type Account struct {
	Identity  string    `gorm:"primaryKey;type:varchar(255)" json:"identity"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

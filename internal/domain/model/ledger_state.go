package model

// LedgerStateID is the primary key of the single ledger_states row.
const LedgerStateID int64 = 1

// LedgerState holds ledger-wide counters.
// ProductCount is the latest assigned product id and never decreases.
type LedgerState struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	ProductCount int64 `gorm:"not null;default:0"`
}

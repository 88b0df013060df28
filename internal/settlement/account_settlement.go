// Package settlement moves purchase payments into the recipient's balance.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repo "marketplace/internal/repository"
)

var (
	ErrInvalidRecipient = errors.New("settlement: recipient is required")
	ErrInvalidAmount    = errors.New("settlement: amount must be positive")
)

// AccountSettlement credits the recipient's account in the balance book.
// When ctx carries a storage transaction the credit joins it, so a failed
// purchase never leaves a credited balance behind.
type AccountSettlement struct {
	accounts repo.AccountRepository
}

func NewAccountSettlement(accounts repo.AccountRepository) *AccountSettlement {
	return &AccountSettlement{accounts: accounts}
}

func (s *AccountSettlement) Transfer(ctx context.Context, to string, amount int64) error {
	if strings.TrimSpace(to) == "" {
		return ErrInvalidRecipient
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.accounts.Credit(ctx, to, amount); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}

package validator

import (
	"errors"
	"strings"

	"marketplace/internal/usecase"
)

const maxIdentityLength = 255

var (
	// 入力が不正
	ErrNameRequired     = errors.New("name required")
	ErrPriceNotPositive = errors.New("price must be > 0")
	ErrIdentityRequired = errors.New("caller identity required")
	ErrIdentityTooLong  = errors.New("caller identity too long")
)

type productValidator struct{}

// Usecaseは interface を依存注入
func NewProductValidator() usecase.ProductValidator {
	return &productValidator{}
}

// 出品の入力を検証。name は空文字だけを弾き、中身には手を加えない
func (v *productValidator) ValidateCreate(name string, price int64) error {
	// 必須チェック
	if name == "" {
		return ErrNameRequired
	}

	// 0 以下の価格は不可
	if price <= 0 {
		return ErrPriceNotPositive
	}

	return nil
}

// identity token を検証（中身は解釈しない）
func (v *productValidator) ValidateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return ErrIdentityRequired
	}
	if len(identity) > maxIdentityLength {
		return ErrIdentityTooLong
	}
	return nil
}

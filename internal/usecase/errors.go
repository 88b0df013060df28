package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode は台帳が呼び出し元に返す拒否理由。
type ErrorCode string

const (
	CodeInvalidInput          ErrorCode = "InvalidInput"
	CodeProductNotFound       ErrorCode = "ProductNotFound"
	CodeInsufficientPayment   ErrorCode = "InsufficientPayment"
	CodeSelfPurchaseForbidden ErrorCode = "SelfPurchaseForbidden"
	CodeAlreadyPurchased      ErrorCode = "AlreadyPurchased"
	CodeNotOwner              ErrorCode = "NotOwner"
	CodePaymentTransferFailed ErrorCode = "PaymentTransferFailed"
	CodeInternal              ErrorCode = "Internal"
)

// LedgerError carries the rejection code, the HTTP status the API answers
// with, and the underlying cause when there is one.
type LedgerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is は Code が同じなら一致とみなす（errors.Is(err, ErrNotOwner) など）
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidInput          = &LedgerError{Code: CodeInvalidInput, Status: http.StatusBadRequest, Message: "invalid input"}
	ErrProductNotFound       = &LedgerError{Code: CodeProductNotFound, Status: http.StatusNotFound, Message: "product not found"}
	ErrInsufficientPayment   = &LedgerError{Code: CodeInsufficientPayment, Status: http.StatusPaymentRequired, Message: "payment must equal price"}
	ErrSelfPurchaseForbidden = &LedgerError{Code: CodeSelfPurchaseForbidden, Status: http.StatusForbidden, Message: "seller cannot buy own product"}
	ErrAlreadyPurchased      = &LedgerError{Code: CodeAlreadyPurchased, Status: http.StatusConflict, Message: "product already purchased"}
	ErrNotOwner              = &LedgerError{Code: CodeNotOwner, Status: http.StatusForbidden, Message: "caller is not the owner"}
	ErrPaymentTransferFailed = &LedgerError{Code: CodePaymentTransferFailed, Status: http.StatusBadGateway, Message: "payment transfer failed"}
	ErrInternal              = &LedgerError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "db error"}
)

// reject は base をコピーして message / cause を差し替える
func reject(base *LedgerError, message string, cause error) error {
	e := *base
	if message != "" {
		e.Message = message
	}
	e.Err = cause
	return &e
}

func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	ok := errors.As(err, &le)
	return le, ok
}

// codeOf はメトリクス・ログ用。nil は "OK"
func codeOf(err error) string {
	if err == nil {
		return "OK"
	}
	if le, ok := AsLedgerError(err); ok {
		return string(le.Code)
	}
	return string(CodeInternal)
}

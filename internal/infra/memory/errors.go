package memory

import "errors"

var (
	errDuplicateID     = errors.New("memory: duplicate product id")
	errBalanceOverflow = errors.New("memory: balance overflow")
)

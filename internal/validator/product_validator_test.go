package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductValidator_ValidateCreate(t *testing.T) {
	v := NewProductValidator()

	tests := []struct {
		name    string
		in      string
		price   int64
		wantErr error
	}{
		{"ok", "iPhone", 1, nil},
		{"surrounding spaces", "  iPad ", 500, nil},
		{"empty", "", 1, ErrNameRequired},
		{"spaces only", " \t ", 1, nil},
		{"long", strings.Repeat("あ", 1000), 1, nil},
		{"zero price", "iPhone", 0, ErrPriceNotPositive},
		{"negative price", "iPhone", -10, ErrPriceNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCreate(tt.in, tt.price)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProductValidator_ValidateIdentity(t *testing.T) {
	v := NewProductValidator()

	assert.NoError(t, v.ValidateIdentity("0x627306090abaB3A6e1400e9345bC60c78a8BEf57"))
	assert.ErrorIs(t, v.ValidateIdentity(""), ErrIdentityRequired)
	assert.ErrorIs(t, v.ValidateIdentity("   "), ErrIdentityRequired)
	assert.ErrorIs(t, v.ValidateIdentity(strings.Repeat("x", 256)), ErrIdentityTooLong)
}

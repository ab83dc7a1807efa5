package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("vendor@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret-password"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 100)))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(150000))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-500))
	assert.Error(t, ValidateAmount(MaxAmount+1))
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("GNF"))
	assert.NoError(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency("gnf"))
	assert.Error(t, ValidateCurrency("GNFX"))
	assert.Error(t, ValidateCurrency(""))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason("товар не доставлен"))
	assert.Error(t, ValidateReason(""))
	assert.Error(t, ValidateReason("   "))
	assert.Error(t, ValidateReason(strings.Repeat("ы", MaxReasonLength+1)))
}

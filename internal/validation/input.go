package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinPasswordLength   = 8
	MaxPasswordLength   = 72 // лимит bcrypt
	MinUsernameLength   = 3
	MaxUsernameLength   = 30
	MaxReasonLength     = 1000
	MaxAmount           = 10_000_000_000 // 10 миллиардов GNF
	CurrencyCodeLength  = 3
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("неверный формат email")
	}
	return nil
}

// ValidatePassword проверяет требования к паролю.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	if length > MaxPasswordLength {
		return fmt.Errorf("пароль должен быть не более %d символов", MaxPasswordLength)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	length := utf8.RuneCountInString(username)
	if length < MinUsernameLength || length > MaxUsernameLength {
		return fmt.Errorf("username должен быть от %d до %d символов", MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username может содержать только буквы, цифры, '-' и '_'")
	}
	return nil
}

// ValidateAmount проверяет сумму в минимальных единицах валюты.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма должна быть положительной")
	}
	if amount > MaxAmount {
		return fmt.Errorf("сумма превышает допустимый максимум")
	}
	return nil
}

// ValidateCurrency проверяет код валюты (ISO 4217).
func ValidateCurrency(currency string) error {
	if len(currency) != CurrencyCodeLength {
		return fmt.Errorf("код валюты должен состоять из %d букв", CurrencyCodeLength)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("код валюты должен состоять из заглавных латинских букв")
		}
	}
	return nil
}

// ValidateReason проверяет причину возврата.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("причина возврата обязательна")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return fmt.Errorf("причина должна быть не более %d символов", MaxReasonLength)
	}
	return nil
}

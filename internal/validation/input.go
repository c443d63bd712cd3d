package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength        = 3
	MaxUsernameLength        = 30
	MinListingTitleLength    = 3
	MaxListingTitleLength    = 200
	MaxListingDescription    = 5000
	MinReasonLength          = 10
	MaxReasonLength          = 2000
	MaxMessageLength         = 5000
	MinPrice                 = 0.0
	MaxPrice                 = 100000000.0 // 100 миллионов
	MaxQuantity              = 1000000
	MinPasswordLength        = 8
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email не может быть пустым")
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("неверный формат email")
	}
	return nil
}

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(value, field string, min, max int) error {
	length := utf8.RuneCountInString(strings.TrimSpace(value))
	if length < min {
		return fmt.Errorf("%s: минимальная длина %d символов", field, min)
	}
	if length > max {
		return fmt.Errorf("%s: максимальная длина %d символов", field, max)
	}
	return nil
}

// ValidatePrice проверяет цену объявления или сделки.
func ValidatePrice(price float64) error {
	if price <= MinPrice {
		return fmt.Errorf("цена должна быть положительной")
	}
	if price > MaxPrice {
		return fmt.Errorf("цена превышает допустимый максимум")
	}
	return nil
}

// ValidateQuantity проверяет количество единиц в сделке.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("количество должно быть не меньше 1")
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("количество превышает допустимый максимум")
	}
	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не короче %d символов", MinPasswordLength)
	}
	return nil
}

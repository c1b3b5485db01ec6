// Package validation holds the contact field checks shown inline by the wizard.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Key identifies a user-displayable validation message.
type Key string

const (
	OK            Key = ""
	Required      Key = "required"
	InvalidFormat Key = "invalid_format"
	MissingSigil  Key = "missing_sigil"
	TooShort      Key = "too_short"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks a local@domain.tld address.
func ValidateEmail(s string) Key {
	if s == "" {
		return Required
	}
	if !emailPattern.MatchString(s) {
		return InvalidFormat
	}
	return OK
}

// ValidateTelegramHandle checks an @username handle.
func ValidateTelegramHandle(s string) Key {
	if s == "" {
		return Required
	}
	if !strings.HasPrefix(s, "@") {
		return MissingSigil
	}
	if utf8.RuneCountInString(s) < 4 {
		return TooShort
	}
	return OK
}

var emailMessages = map[Key]string{
	Required:      "Email обязателен",
	InvalidFormat: "Введите корректный email",
}

var telegramMessages = map[Key]string{
	Required:     "Telegram обязателен",
	MissingSigil: "Telegram должен начинаться с @",
	TooShort:     "Слишком короткий username",
}

// EmailMessage returns the display text for an email result.
func EmailMessage(k Key) string { return emailMessages[k] }

// TelegramMessage returns the display text for a handle result.
func TelegramMessage(k Key) string { return telegramMessages[k] }

package tools

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone")

// NormalizePhone reduz o telefone ao formato do wa_id do WhatsApp
// (apenas dígitos, com DDI, sem '+').
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}

	phone := strings.TrimLeft(OnlyDigits(raw), "0")
	if phone == "" {
		return "", fmt.Errorf("%w %q", ErrInvalidPhone, raw)
	}
	// E.164 allows at most 15 digits
	if len(phone) > 15 {
		return "", fmt.Errorf("%w length: %d", ErrInvalidPhone, len(phone))
	}
	return phone, nil
}

package privacy

import "strings"

// Log sanitizers for personal identifiers. Phone numbers and chat keys
// keep their last four digits so operators can correlate log lines
// without exposing the full number.

// MaskPhone masks a phone number down to its last four digits.
// "+5511999990000" becomes "+*********0000".
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		digits := phone[1:]
		if len(digits) <= 4 {
			return "+" + strings.Repeat("*", len(digits))
		}
		return "+" + strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskChatKey masks the number part of a provider chat key while keeping
// the domain suffix visible. "5511999990000@s.whatsapp.net" becomes
// "*********0000@s.whatsapp.net"; keys without a suffix are treated as
// plain phone numbers.
func MaskChatKey(chatKey string) string {
	if chatKey == "" {
		return ""
	}

	at := strings.Index(chatKey, "@")
	if at < 0 {
		return MaskPhone(chatKey)
	}
	return MaskPhone(chatKey[:at]) + chatKey[at:]
}

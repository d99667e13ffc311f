package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	cases := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{name: "valid with plus", phone: "+5511999990000"},
		{name: "valid without plus", phone: "5511999990000"},
		{name: "empty", phone: "", wantErr: true},
		{name: "too short", phone: "12345", wantErr: true},
		{name: "too long", phone: "1234567890123456", wantErr: true},
		{name: "letters", phone: "55119999abcd", wantErr: true},
		{name: "embedded plus", phone: "55+11999990000", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePhoneNumber(tc.phone)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateContactKey(t *testing.T) {
	cases := []struct {
		name       string
		contactKey string
		wantErr    bool
	}{
		{name: "bare phone", contactKey: "5511999990000"},
		{name: "direct chat key", contactKey: "5511999990000@s.whatsapp.net"},
		{name: "group chat key", contactKey: "120363025246125486@g.us"},
		{name: "empty", contactKey: "", wantErr: true},
		{name: "whitespace", contactKey: "5511 9999", wantErr: true},
		{name: "colon", contactKey: "q:inject", wantErr: true},
		{name: "empty number with suffix", contactKey: "@s.whatsapp.net", wantErr: true},
		{name: "short bare number", contactKey: "123", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContactKey(tc.contactKey)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

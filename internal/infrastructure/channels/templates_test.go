package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		locale   string
		key      string
		params   map[string]string
		contains string
	}{
		{
			name:     "kinyarwanda early reminder",
			locale:   "rw",
			key:      TemplateEarlyReminder,
			params:   map[string]string{"name": "Jane", "amount": "5000", "currency": "RWF", "due_date": "2026-03-25"},
			contains: "Jane",
		},
		{
			name:     "swahili due reminder",
			locale:   "sw",
			key:      TemplateDueReminder,
			params:   map[string]string{"name": "Amina", "amount": "5000", "currency": "RWF"},
			contains: "*775#",
		},
		{
			name:     "unknown locale falls back to english",
			locale:   "de",
			key:      TemplateFinalNotice,
			params:   map[string]string{"name": "Hans", "amount": "5000", "currency": "RWF"},
			contains: "overdue",
		},
		{
			name:     "missing key in locale falls back to english",
			locale:   "lg",
			key:      TemplatePaymentThanks,
			params:   map[string]string{"name": "Okello", "amount": "5000", "currency": "RWF", "balance": "0"},
			contains: "Thank you Okello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Render(tt.locale, tt.key, tt.params)
			assert.Contains(t, text, tt.contains)
			assert.NotContains(t, text, "{name}")
		})
	}

	t.Run("unknown key renders empty", func(t *testing.T) {
		assert.Empty(t, Render("en", "no.such.key", nil))
	})
}

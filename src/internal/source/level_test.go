package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLogLevel(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected string
	}{
		{"BracketedLevel", "2023-06-01 [ERROR] connection refused", "error"},
		{"LowercaseLevel", "level=warn disk almost full", "warn"},
		{"MixedCase", "Info: server started", "info"},
		{"MostSevereWins", "WARN: previous ERROR resolved", "error"},
		{"WarningBeforeWarn", "WARNING: something", "warning"},
		{"NoLevel", "plain message without severity", ""},
		{"Empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractLogLevel(tc.line))
		})
	}
}

package gelf

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gelfship/src/internal/core"
)

// Version is the GELF spec version stamped into every message
const Version = "1.1"

// Field names the collector reserves for its own use. They are dropped
// silently if they survive key normalization.
var reservedFields = map[string]bool{
	"id":  true,
	"_id": true,
}

// Allowed character class for additional field names, checked after the
// leading underscore.
var fieldNamePattern = regexp.MustCompile(`^[\w.\-]+$`)

// BuilderConfig holds the per-session inputs of message construction
type BuilderConfig struct {
	// Hostname is the value of the mandatory "host" field
	Hostname string

	// StaticFields are merged into every message's additional fields.
	// Per-record fields win on key collision.
	StaticFields map[string]any

	// TimestampOffset is subtracted from every record timestamp before
	// conversion. Default off; only for collectors with a known fixed
	// clock skew.
	TimestampOffset time.Duration
}

// Build maps a log record and its formatted message text onto the GELF
// field set. The result is ready for an Encoder; it contains only the
// mandatory fields plus sanitized "_"-prefixed additional fields.
func Build(entry core.LogEntry, text string, cfg BuilderConfig) map[string]any {
	msg := map[string]any{
		"version":       Version,
		"host":          cfg.Hostname,
		"short_message": shortMessage(text),
		"timestamp":     Timestamp(entry.Time, cfg.TimestampOffset),
		"level":         SyslogLevel(entry.Level),
	}

	if text != "" {
		msg["full_message"] = text
	}

	// Per-record fields are inserted first so they win over static fields
	// on collision. Insertion never overwrites an existing key.
	addFields(msg, entry.Fields)
	addFields(msg, cfg.StaticFields)

	return msg
}

// Timestamp converts a record time to floating-point Unix seconds
func Timestamp(t time.Time, offset time.Duration) float64 {
	t = t.Add(-offset)
	return float64(t.UnixNano()) / float64(time.Second)
}

// SyslogLevel maps a record severity name to a syslog integer. The
// mapping is total: unknown severities ship as informational rather than
// failing the record.
func SyslogLevel(level string) int64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "emerg", "emergency", "panic":
		return 0
	case "alert":
		return 1
	case "crit", "critical", "fatal":
		return 2
	case "error", "err":
		return 3
	case "warn", "warning":
		return 4
	case "notice":
		return 5
	case "info", "":
		return 6
	case "debug", "trace":
		return 7
	default:
		return 6
	}
}

func shortMessage(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func addFields(msg map[string]any, fields map[string]any) {
	for key, value := range fields {
		name, ok := SanitizeFieldName(key)
		if !ok {
			continue
		}
		coerced, ok := CoerceFieldValue(value)
		if !ok {
			continue
		}
		// First writer wins
		if _, exists := msg[name]; exists {
			continue
		}
		msg[name] = coerced
	}
}

// SanitizeFieldName normalizes an additional-field key to its wire form.
// Returns false when the key is reserved or fails validation, in which
// case the field is dropped.
func SanitizeFieldName(key string) (string, bool) {
	if key == "" || reservedFields[key] {
		return "", false
	}
	if !strings.HasPrefix(key, "_") {
		key = "_" + key
	}
	if reservedFields[key] {
		return "", false
	}
	if !fieldNamePattern.MatchString(key[1:]) {
		return "", false
	}
	return key, true
}

// CoerceFieldValue converts a metadata value to a GELF-safe string or
// number. Values of any other type are rejected and the field dropped.
func CoerceFieldValue(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	case json.Number:
		return v, true
	case bool:
		return nil, false
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return nil, false
	}
}

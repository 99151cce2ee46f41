package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"

	"github.com/lixenwraith/log"
)

const defaultTimestampFormat = time.RFC3339

// Produces message text from a template over the record's fields
type TextFormatter struct {
	config   config.FormatConfig
	template *template.Template
	logger   *log.Logger
}

// Creates a new text formatter
func NewTextFormatter(cfg config.FormatConfig, logger *log.Logger) (*TextFormatter, error) {
	f := &TextFormatter{
		config: cfg,
		logger: logger,
	}
	if f.config.TimestampFormat == "" {
		f.config.TimestampFormat = defaultTimestampFormat
	}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.Format(f.config.TimestampFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("message").Funcs(funcMap).Parse(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	f.template = tmpl
	return f, nil
}

// Formats the log entry using the template
func (f *TextFormatter) Format(entry core.LogEntry) ([]byte, error) {
	data := map[string]any{
		"Timestamp": entry.Time,
		"Level":     entry.Level,
		"Source":    entry.Source,
		"Message":   entry.Message,
	}

	if data["Level"] == "" {
		data["Level"] = "INFO"
	}

	if len(entry.Fields) > 0 {
		data["Fields"] = entry.Fields
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		// Fallback: return a basic formatted message
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%s] [%s] %s - %s",
			entry.Time.Format(f.config.TimestampFormat),
			strings.ToUpper(entry.Level),
			entry.Source,
			entry.Message)
		return []byte(fallback), nil
	}

	return buf.Bytes(), nil
}

// Returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}

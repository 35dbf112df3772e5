package migrate

import (
	"fmt"
	"strings"
	"time"
)

// MessageLevel classifies a row message.
type MessageLevel string

// Message level constants (typed).
const (
	MessageError   MessageLevel = "error"
	MessageWarning MessageLevel = "warning"
	MessageNotice  MessageLevel = "notice"
)

// RowMessage is a diagnostic attached to a single source row.
type RowMessage struct {
	Level     MessageLevel `json:"level"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

// Row is a single source record flowing through the transforms.
//
// Source holds the raw CSV values keyed by header. Destination collects the
// processed values; its "langcode" entry selects the language used for media
// lookups.
type Row struct {
	Index       int               `json:"index"`
	Source      map[string]string `json:"source"`
	Destination map[string]any    `json:"destination"`
	Messages    []RowMessage      `json:"messages,omitempty"`
}

// NewRow creates a row with initialized maps.
func NewRow(index int, source map[string]string) *Row {
	if source == nil {
		source = make(map[string]string)
	}
	return &Row{
		Index:       index,
		Source:      source,
		Destination: make(map[string]any),
	}
}

// SourceValue returns the trimmed source value for key.
func (r *Row) SourceValue(key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Source[key])
}

// SetDestination sets a processed destination property.
func (r *Row) SetDestination(key string, value any) {
	if r.Destination == nil {
		r.Destination = make(map[string]any)
	}
	r.Destination[key] = value
}

// Language returns the row's destination langcode, or DefaultLanguage.
func (r *Row) Language() string {
	if r == nil || r.Destination == nil {
		return DefaultLanguage
	}
	switch v := r.Destination["langcode"].(type) {
	case string:
		if v != "" {
			return v
		}
	case fmt.Stringer:
		if s := v.String(); s != "" {
			return s
		}
	}
	return DefaultLanguage
}

// AddMessage appends a message to the row.
func (r *Row) AddMessage(level MessageLevel, message string) {
	if r == nil {
		return
	}
	r.Messages = append(r.Messages, RowMessage{
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// HasErrors reports whether any error-level message was recorded.
func (r *Row) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, m := range r.Messages {
		if m.Level == MessageError {
			return true
		}
	}
	return false
}

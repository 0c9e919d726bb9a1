package api

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/wondertwin-ai/twin-serverest/internal/messages"
)

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, format string) {
	if _, exists := fe[field]; exists {
		return
	}
	if strings.Contains(format, "%s") {
		fe[field] = fmt.Sprintf(format, field)
		return
	}
	fe[field] = format
}

// str returns a required, non-blank string field.
func (fe fieldErrors) str(body map[string]any, field string) string {
	v, ok := body[field]
	if !ok || v == nil {
		fe.add(field, messages.FieldRequired)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		fe.add(field, messages.FieldString)
		return ""
	}
	if strings.TrimSpace(s) == "" {
		fe.add(field, messages.FieldNotBlank)
		return ""
	}
	return s
}

// optionalStr returns an optional string field, or "" when absent.
func (fe fieldErrors) optionalStr(body map[string]any, field string) string {
	v, ok := body[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		fe.add(field, messages.FieldString)
	}
	return s
}

// email returns a required field that must be a plain address.
func (fe fieldErrors) email(body map[string]any, field string) string {
	s := fe.str(body, field)
	if s == "" {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		fe.add(field, messages.FieldInvalidMail)
		return ""
	}
	return s
}

// integer returns a required integer field no smaller than floor.
func (fe fieldErrors) integer(body map[string]any, field string, floor int64) int {
	v, ok := body[field]
	if !ok || v == nil {
		fe.add(field, messages.FieldRequired)
		return 0
	}
	num, ok := v.(json.Number)
	if !ok {
		fe.add(field, messages.FieldNumber)
		return 0
	}
	n, err := num.Int64()
	if err != nil {
		fe.add(field, messages.FieldInteger)
		return 0
	}
	if n < floor {
		if floor > 0 {
			fe.add(field, messages.FieldPositive)
		} else {
			fe.add(field, messages.FieldNonNegative)
		}
		return 0
	}
	return int(n)
}

// boolString returns a required "true"/"false" string field.
func (fe fieldErrors) boolString(body map[string]any, field string) bool {
	s := fe.str(body, field)
	if s == "" {
		return false
	}
	if s != "true" && s != "false" {
		fe.add(field, messages.FieldBoolString)
		return false
	}
	return s == "true"
}

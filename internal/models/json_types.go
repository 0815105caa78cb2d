package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores a []string as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// FormField is one field definition in an event's dynamic registration form.
type FormField struct {
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text, number, dropdown, checkbox, file
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// FormSchema stores the ordered form definition as a JSON column.
type FormSchema []FormField

func (s FormSchema) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *FormSchema) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// AnswerMap stores submitted form answers keyed by field label.
type AnswerMap map[string]interface{}

func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *AnswerMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan type %T into JSON column", value)
	}
}

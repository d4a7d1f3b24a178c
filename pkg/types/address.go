package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the shipping address snapshot frozen onto an order.
type Address struct {
	Recipient  string  `json:"recipient" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country" validate:"omitempty,len=2"`
}

// Missing lists the required fields that are blank.
func (a Address) Missing() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"recipient", a.Recipient},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// Value stores the address as a JSON document.
func (a Address) Value() (driver.Value, error) {
	if missing := a.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("address: missing %s", strings.Join(missing, ", "))
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("address: %w", err)
	}
	return string(raw), nil
}

// Scan decodes the JSON document written by Value.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	return nil
}

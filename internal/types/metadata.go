package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a free-form string map persisted as JSONB. Billing flows use it
// for references that have no column of their own (settlement references,
// promo ids on invoices, reminder timestamps).
type Metadata map[string]string

// Scan implements sql.Scanner; a NULL column scans as an empty map
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("metadata: cannot scan %T", value)
	}

	result := make(Metadata)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

// Value implements driver.Valuer; a nil map is stored as an empty object
// rather than NULL
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(make(Metadata))
	}
	return json.Marshal(m)
}

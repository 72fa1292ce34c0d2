package shared

import "time"

// ISOTime renders a timestamp as an RFC 3339 UTC string for response DTOs.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ISOTimePtr renders an optional timestamp, or nil so the field encodes
// as an explicit JSON null. Absent values are always null, never omitted.
func ISOTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := ISOTime(*t)
	return &s
}

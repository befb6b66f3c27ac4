package divemodel

import "fmt"

// CivilDateTime is a zone-less calendar date-time (spec §3: "civil-date-time
// (no zone)"), the decoded form of the packed 32-bit datetime word.
type CivilDateTime struct {
	Year, Month, Day, Hour, Minute, Second int
}

// SentinelDateTime is substituted whenever a packed datetime's fields fall
// outside their valid ranges (spec §4.5.1).
var SentinelDateTime = CivilDateTime{Year: 2000, Month: 1, Day: 1}

// String renders ISO-8601 with no zone offset: "YYYY-MM-DDTHH:MM:SS"
// (spec §6's exported-record format).
func (c CivilDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
}

// MarshalJSON renders the same ISO-8601-no-zone string as the exported
// record's "datetime" field.
func (c CivilDateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Package divedecode implements the dive decoder (C5): packed datetime,
// the fixed-offset 200-byte dive header, and the tagged profile stream.
package divedecode

import (
	"github.com/srg/divex/internal/divemodel"
)

// DecodePackedDateTime decodes the 32-bit little-endian packed bitfield
// datetime (spec §4.5.1). Out-of-range fields fall back to the sentinel
// 2000-01-01 00:00:00.
func DecodePackedDateTime(packed uint32) divemodel.CivilDateTime {
	hour := int(packed & 0x1F)
	minute := int((packed >> 5) & 0x3F)
	day := int((packed >> 11) & 0x1F)
	month := int((packed >> 16) & 0x0F)
	year := int((packed >> 20) & 0x0FFF)

	if hour > 23 || minute > 59 || day < 1 || day > 31 || month < 1 || month > 12 {
		return divemodel.SentinelDateTime
	}
	if !validDayForMonth(year, month, day) {
		return divemodel.SentinelDateTime
	}

	return divemodel.CivilDateTime{Year: year, Month: month, Day: day, Hour: hour, Minute: minute}
}

// EncodePackedDateTime is the inverse bitfield layout of
// DecodePackedDateTime, used by the "encode(decode(p)) == p" property
// (spec §8, invariant 3).
func EncodePackedDateTime(c divemodel.CivilDateTime) uint32 {
	var packed uint32
	packed |= uint32(c.Hour) & 0x1F
	packed |= (uint32(c.Minute) & 0x3F) << 5
	packed |= (uint32(c.Day) & 0x1F) << 11
	packed |= (uint32(c.Month) & 0x0F) << 16
	packed |= (uint32(c.Year) & 0x0FFF) << 20
	return packed
}

var daysInMonth = [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func validDayForMonth(year, month, day int) bool {
	max := daysInMonth[month-1]
	if month == 2 && isLeapYear(year) {
		max = 29
	}
	return day <= max
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

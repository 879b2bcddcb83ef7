package util

import (
	"fmt"
	"time"
)

// Date and resident-registration-number derivations. Dates are stored and
// compared as canonical strings of the form "2025-1-16" (year-month-day, no
// zero padding). The unpadded form matches the records already on disk, so
// it must be produced byte-for-byte identically everywhere.

var (
	maleDigits   = []string{"1", "3", "5", "7"}
	femaleDigits = []string{"2", "4", "6", "8"}
)

// FormatCanonicalDate renders t in the canonical date form used for every
// stored date string and equality comparison in the system.
func FormatCanonicalDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// Last7Days returns the canonical dates of the trailing seven days, oldest
// first, ending at now's date.
func Last7Days(now time.Time) []string {
	days := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		days = append(days, FormatCanonicalDate(now.AddDate(0, 0, -i)))
	}
	return days
}

// fullBirthYear resolves a two-digit birth year against now: years at or
// below the current two-digit year are 2000s, the rest 1900s.
func fullBirthYear(yy int, now time.Time) int {
	if yy <= now.Year()%100 {
		return 2000 + yy
	}
	return 1900 + yy
}

// allDigits reports whether every byte of s is an ASCII digit. Sscanf-style
// parsing accepts leading signs, so the pair parsers below check this first.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// digitPair parses a two-character digit pair.
func digitPair(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

// BirthSortKey maps a YYMMDD birth string to a fully ordered integer
// (fullYear*10000 + month*100 + day). Malformed input (shorter than six
// characters, or non-numeric) yields 0, which sorts first; callers must not
// treat 0 as an error.
func BirthSortKey(birth string, now time.Time) int {
	if len(birth) < 6 || !allDigits(birth[:6]) {
		return 0
	}
	yy, mm, dd := digitPair(birth[:2]), digitPair(birth[2:4]), digitPair(birth[4:6])
	return fullBirthYear(yy, now)*10000 + mm*100 + dd
}

// GenderFromDigit classifies the seventh digit of a resident registration
// number: 1/3/5/7 male (남), 2/4/6/8 female (여), anything else 기타.
func GenderFromDigit(d string) string {
	if Contains(d, maleDigits) {
		return "남"
	}
	if Contains(d, femaleDigits) {
		return "여"
	}
	return "기타"
}

// GenderFromRRN derives the gender label from a digits-only resident
// registration number. Numbers shorter than seven digits are 알수없음.
func GenderFromRRN(rrn string) string {
	if len(rrn) < 7 {
		return "알수없음"
	}
	return GenderFromDigit(rrn[6:7])
}

// Age computes the Korean-reckoning age (current year - birth year + 1) from
// a YYMMDD birth string. ok is false when the birth year cannot be parsed;
// callers render that as "-".
func Age(birth string, now time.Time) (age int, ok bool) {
	if len(birth) < 2 || !allDigits(birth[:2]) {
		return 0, false
	}
	return now.Year() - fullBirthYear(digitPair(birth[:2]), now) + 1, true
}

// FormatAge renders an age for display, using the "-" sentinel for
// unparsable birth strings.
func FormatAge(birth string, now time.Time) string {
	age, ok := Age(birth, now)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d세", age)
}

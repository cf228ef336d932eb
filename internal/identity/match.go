// Package identity compares the identity attributes a customer typed in with
// the attributes a verification provider extracted from their document.
//
// Results are advisory: a mismatch never blocks a verification, it only
// lands the driver in the manual review queue.
package identity

import (
	"strings"
	"time"
)

const (
	FieldName          = "name"
	FieldDateOfBirth   = "date_of_birth"
	FieldLicenseNumber = "license_number"

	// NotAvailable stands in for a verified value the provider did not return.
	NotAvailable = "(not available)"
)

// Attributes are raw identity values as stored or received.
type Attributes struct {
	Name          string `json:"name"`
	DateOfBirth   string `json:"dateOfBirth"`
	LicenseNumber string `json:"licenseNumber"`
}

type Mismatch struct {
	Field    string `json:"field"`
	Provided string `json:"provided"`
	Verified string `json:"verified"`
}

type Result struct {
	NameMatch          bool       `json:"nameMatch"`
	DateOfBirthMatch   bool       `json:"dobMatch"`
	LicenseNumberMatch bool       `json:"licenseNumberMatch"`
	Mismatches         []Mismatch `json:"mismatches"`
}

// AllMatch is true when no field needs review.
func (r Result) AllMatch() bool {
	return r.NameMatch && r.DateOfBirthMatch && r.LicenseNumberMatch
}

// Match compares provided against verified attributes.
func Match(provided, verified Attributes) Result {
	res := Result{
		NameMatch:          NamesMatch(provided.Name, verified.Name),
		DateOfBirthMatch:   DatesMatch(provided.DateOfBirth, verified.DateOfBirth),
		LicenseNumberMatch: LicenseNumbersMatch(provided.LicenseNumber, verified.LicenseNumber),
		Mismatches:         []Mismatch{},
	}
	if !res.NameMatch {
		res.Mismatches = append(res.Mismatches, mismatch(FieldName, provided.Name, verified.Name))
	}
	if !res.DateOfBirthMatch {
		res.Mismatches = append(res.Mismatches, mismatch(FieldDateOfBirth, provided.DateOfBirth, verified.DateOfBirth))
	}
	if !res.LicenseNumberMatch {
		res.Mismatches = append(res.Mismatches, mismatch(FieldLicenseNumber, provided.LicenseNumber, verified.LicenseNumber))
	}
	return res
}

func mismatch(field, provided, verified string) Mismatch {
	verified = strings.TrimSpace(verified)
	if verified == "" {
		verified = NotAvailable
	}
	return Mismatch{Field: field, Provided: strings.TrimSpace(provided), Verified: verified}
}

// NamesMatch treats names as equal when, after lower-casing and collapsing
// whitespace, one contains the other ("John Smith" vs "John").
func NamesMatch(provided, verified string) bool {
	p := normalizeName(provided)
	v := normalizeName(verified)
	if p == "" || v == "" {
		return false
	}
	return p == v || strings.Contains(p, v) || strings.Contains(v, p)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DatesMatch compares only the calendar date of both values.
func DatesMatch(provided, verified string) bool {
	p, ok := CalendarDate(provided)
	if !ok {
		return false
	}
	v, ok := CalendarDate(verified)
	if !ok {
		return false
	}
	return p == v
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CalendarDate reduces a date or timestamp to YYYY-MM-DD. Timestamps keep
// the calendar date they were written with, no zone conversion happens.
func CalendarDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// LicenseNumbersMatch ignores whitespace, dashes and case.
func LicenseNumbersMatch(provided, verified string) bool {
	p := NormalizeLicense(provided)
	v := NormalizeLicense(verified)
	return p != "" && p == v
}

func NormalizeLicense(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package services

import (
	"fmt"
	"strings"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/utils"
)

// buildDriver validates a driver payload. field prefixes error fields, e.g.
// "additionalDrivers[1]".
func buildDriver(field string, kind models.DriverKind, bookingID string, in models.DriverInput) (models.Driver, error) {
	d := models.Driver{
		ID:            newID(),
		BookingID:     bookingID,
		Kind:          kind,
		FirstName:     utils.NormalizeSpace(in.FirstName),
		LastName:      utils.NormalizeSpace(in.LastName),
		Email:         strings.ToLower(utils.TrimOrEmpty(in.Email)),
		Phone:         utils.TrimOrEmpty(in.Phone),
		LicenseNumber: utils.TrimOrEmpty(in.LicenseNumber),
		LicenseState:  strings.ToUpper(utils.TrimOrEmpty(in.LicenseState)),
	}
	if d.FirstName == "" || d.LastName == "" {
		return d, domain.ValidationError{Field: field + ".name", Msg: "first and last name are required"}
	}
	if !strings.Contains(d.Email, "@") {
		return d, domain.ValidationError{Field: field + ".email", Msg: "valid email is required"}
	}
	if d.LicenseNumber == "" {
		return d, domain.ValidationError{Field: field + ".licenseNumber", Msg: "license number is required"}
	}
	dob, err := utils.ParseDate(in.DateOfBirth)
	if err != nil {
		return d, domain.ValidationError{Field: field + ".dateOfBirth", Msg: "invalid date"}
	}
	d.DateOfBirth = dob
	if strings.TrimSpace(in.LicenseExpiry) != "" {
		exp, err := utils.ParseDate(in.LicenseExpiry)
		if err != nil {
			return d, domain.ValidationError{Field: field + ".licenseExpiry", Msg: "invalid date"}
		}
		d.LicenseExpiry = exp
	}
	return d, nil
}

func additionalField(i int) string {
	return fmt.Sprintf("additionalDrivers[%d]", i)
}

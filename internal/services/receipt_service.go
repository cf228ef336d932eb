package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/repositories"
	"rental-backend/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders a PDF receipt for a paid booking.
type ReceiptService struct {
	Bookings  repositories.BookingRepository
	Vehicles  repositories.VehicleRepository
	Drivers   repositories.DriverRepository
	Settings  Settings
	RequestID string
	Loader    func(ctx context.Context, bookingID, userID string) (receiptData, error)
}

type receiptData struct {
	Booking     models.Booking
	VehicleName string
	DriverName  string
	DriverEmail string
}

func (s ReceiptService) Generate(ctx context.Context, bookingID, userID string) ([]byte, string, error) {
	load := s.Loader
	if load == nil {
		load = s.load
	}
	data, err := load(ctx, bookingID, userID)
	if err != nil {
		return nil, "", err
	}
	if data.Booking.PaymentStatus != models.PaymentPaid {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "receipt is available once the booking is paid"}
	}
	utils.LogEvent(s.RequestID, "receipt", "generate", "booking="+bookingID)
	return buildReceiptPDF(data, s.Settings.withDefaults().Currency)
}

func (s ReceiptService) load(ctx context.Context, bookingID, userID string) (receiptData, error) {
	b, err := s.Bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return receiptData{}, err
	}
	d := receiptData{Booking: b}
	if v, err := s.Vehicles.GetByID(ctx, b.VehicleID); err == nil {
		d.VehicleName = v.Name
	}
	if name, email, err := s.Drivers.PrimaryContact(ctx, b.ID); err == nil {
		d.DriverName, d.DriverEmail = name, email
	}
	return d, nil
}

func buildReceiptPDF(d receiptData, currency string) ([]byte, string, error) {
	b := d.Booking
	p := b.Pricing

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental Receipt", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENTAL RECEIPT")
	pdf.Ln(12)

	paidAt := "-"
	if b.PaidAt != nil {
		paidAt = utils.FormatDateTime(*b.PaidAt)
	}
	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking      : %s", b.ID),
		fmt.Sprintf("Paid at      : %s UTC", paidAt),
		fmt.Sprintf("Driver       : %s", safe(d.DriverName, "-")),
		fmt.Sprintf("Email        : %s", safe(d.DriverEmail, "-")),
		fmt.Sprintf("Vehicle      : %s", safe(d.VehicleName, b.VehicleID)),
		fmt.Sprintf("Rental       : %s, %d days", p.RentalType, p.RentalDays),
		fmt.Sprintf("Dates        : %s -> %s", utils.FormatDate(b.PickupDate), utils.FormatDate(b.ReturnDate)),
		fmt.Sprintf("Extensions   : %d", b.ExtensionCount),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Charges:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	charges := []struct {
		label  string
		amount int64
	}{
		{"Rental", p.RentalAmount},
		{"Security deposit", p.SecurityDeposit},
		{"Additional drivers", p.AdditionalDriverFee},
		{"Delivery", p.DeliveryFee},
	}
	for _, c := range charges {
		if c.amount == 0 {
			continue
		}
		pdf.CellFormat(120, 6, c.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, utils.FormatCents(c.amount, currency), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, utils.FormatCents(p.TotalPrice, currency), "T", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "The security deposit is refunded after the vehicle is returned undamaged.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("RECEIPT_%s_%s.pdf", safeFilenamePart(b.ID), time.Now().UTC().Format("20060102"))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

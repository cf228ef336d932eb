package payments

import (
	"errors"
	"fmt"

	"rental-backend/internal/domain"

	"github.com/stripe/stripe-go/v79"
)

// Stable codes for reader problems a cashier can act on.
const (
	CodeReaderOffline = "reader_offline"
	CodeReaderBusy    = "reader_busy"
	CodeReaderTimeout = "reader_timeout"
)

var readerCodes = map[string]string{
	"terminal_reader_offline": CodeReaderOffline,
	"terminal_reader_busy":    CodeReaderBusy,
	"terminal_reader_timeout": CodeReaderTimeout,
}

// classify turns a gateway error into a domain.ExternalError with a stable
// code.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return domain.ExternalError{Service: service, Code: "gateway_unavailable", Msg: "payment provider unreachable", Err: err}
	}
	code := string(se.Code)
	if mapped, ok := readerCodes[code]; ok {
		return domain.ExternalError{Service: service, Code: mapped, Msg: se.Msg, Err: err}
	}
	if code == "" {
		code = string(se.Type)
	}
	if code == "" {
		code = "gateway_error"
	}
	return domain.ExternalError{Service: service, Code: code, Msg: se.Msg, Err: err}
}

func formatDOB(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

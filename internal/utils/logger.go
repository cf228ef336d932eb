package utils

import (
	"log"
	"strings"
)

const maxLogMessage = 512

// LogEvent prints one line per event: [MODULE] action=... request_id=... msg=...
// Callers pass ids and summaries, never card data or identity documents.
// Provider errors can span lines; they are flattened and capped so each event
// stays on one line.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, flattenMessage(message))
}

func flattenMessage(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLogMessage {
		s = s[:maxLogMessage] + "..."
	}
	return s
}

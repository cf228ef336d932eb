package utils

import (
	"strings"
	"testing"
)

func TestFlattenMessage(t *testing.T) {
	got := flattenMessage("stripe error:\n  card_declined\tretry later ")
	if got != "stripe error: card_declined retry later" {
		t.Fatalf("unexpected %q", got)
	}

	long := flattenMessage(strings.Repeat("x", maxLogMessage+10))
	if len(long) != maxLogMessage+3 || !strings.HasSuffix(long, "...") {
		t.Fatalf("expected capped message, got len %d", len(long))
	}
}

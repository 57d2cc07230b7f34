package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// ParseSSEData parses a data-only Server-Sent Events stream into its
// data payloads, one string per event.
//
// Handles the W3C SSE spec for the subset the API emits:
//   - Multiple "data:" lines within one event are joined with newline
//   - An empty line terminates an event
//   - Comment lines starting with ":" are ignored
func ParseSSEData(t *testing.T, body string) []string {
	t.Helper()

	var events []string
	var dataLines []string
	lineNum := 0

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))

		case line == "":
			if len(dataLines) > 0 {
				events = append(events, strings.Join(dataLines, "\n"))
				dataLines = nil
			}

		case strings.HasPrefix(line, ":"):
			// comment, ignore

		default:
			t.Fatalf("SSE parse error at line %d: unexpected line %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}
	if len(dataLines) > 0 {
		t.Fatalf("SSE stream ended without terminating empty line, pending data %q", dataLines)
	}

	return events
}

package testutil

import "testing"

func TestParseSSEData(t *testing.T) {
	t.Parallel()

	body := "data: {\"type\":\"metadata\"}\n\n" +
		": heartbeat\n" +
		"data: first\ndata: second\n\n" +
		"data: {\"type\":\"end\"}\n\n"

	events := ParseSSEData(t, body)

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %v", len(events), events)
	}
	if events[0] != `{"type":"metadata"}` {
		t.Errorf("first event = %q", events[0])
	}
	if events[1] != "first\nsecond" {
		t.Errorf("multi-line data not joined: %q", events[1])
	}
	if events[2] != `{"type":"end"}` {
		t.Errorf("last event = %q", events[2])
	}
}

func TestParseSSEData_Empty(t *testing.T) {
	t.Parallel()

	if events := ParseSSEData(t, ""); len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

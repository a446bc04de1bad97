package azalt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLine(t *testing.T) {
	for _, test := range []struct {
		input string
		cmd   Command
		ok    bool
	}{
		{"AZ:10.0 ALT:0.0", Command{AzDeg: 10, AltDeg: 0}, true},
		{"AZ:350.125 ALT:-12.5", Command{AzDeg: 350.125, AltDeg: -12.5}, true},
		{"AZ:10 ALT:80", Command{AzDeg: 10, AltDeg: 80}, true},
		{"  AZ:1.5 ALT:2.5  ", Command{AzDeg: 1.5, AltDeg: 2.5}, true},
		{"tick 42 AZ:180.0 ALT:45.0 trailing", Command{AzDeg: 180, AltDeg: 45}, true},
		// Missing markers are silently discarded.
		{"AZBAD ALT:5", Command{}, false},
		{"AZ:5", Command{}, false},
		{"ALT:5", Command{}, false},
		{"", Command{}, false},
		// Non-numeric payloads fall back to zero, matching the
		// controller's historical accept-silently behavior.
		{"AZ:abc ALT:xyz", Command{AzDeg: 0, AltDeg: 0}, true},
		{"AZ:12.3.4 ALT:9", Command{AzDeg: 12.3, AltDeg: 9}, true},
		{"AZ:-3 ALT:+4", Command{AzDeg: -3, AltDeg: 4}, true},
	} {
		t.Run(test.input, func(t *testing.T) {
			cmd, ok := ParseLine(test.input)
			if ok != test.ok {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", test.input, ok, test.ok)
			}
			if diff := cmp.Diff(test.cmd, cmd); diff != "" {
				t.Errorf("unexpected command: got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestParseLineMarkerOrder(t *testing.T) {
	// ALT: before AZ: means no azimuth payload exists between the
	// markers; the line is discarded.
	if _, ok := ParseLine("ALT:5 AZ:10"); ok {
		t.Error("ParseLine accepted markers out of order")
	}
}

package checkout

import "testing"

func TestPlatformFeeCents(t *testing.T) {
	cases := []struct {
		name  string
		gross int64
		bps   int
		want  int64
	}{
		{name: "standard rate", gross: 12500, bps: 1500, want: 1875},
		{name: "rounds down below half", gross: 303, bps: 1500, want: 45},
		{name: "rounds up above half", gross: 333, bps: 1500, want: 50},
		{name: "rounds half up", gross: 1, bps: 5000, want: 1},
		{name: "rounds half up at scale", gross: 90, bps: 1500, want: 14},
		{name: "zero rate", gross: 12500, bps: 0, want: 0},
		{name: "full rate", gross: 12500, bps: 10000, want: 12500},
		{name: "one cent", gross: 1, bps: 1500, want: 0},
	}
	for _, tc := range cases {
		if got := PlatformFeeCents(tc.gross, tc.bps); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

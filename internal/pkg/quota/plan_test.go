package quota

import "testing"

func TestLimitFor(t *testing.T) {
	tests := []struct {
		plan string
		want int
	}{
		{plan: "Free", want: 25},
		{plan: "Starter", want: 200},
		{plan: "Growth", want: 400},
		{plan: "Enterprise", want: Unlimited},
		{plan: "free", want: 25},
		{plan: "STARTER", want: 200},
		{plan: "", want: 25},
		{plan: "invalid", want: 25},
	}

	for _, tt := range tests {
		if got := LimitFor(tt.plan); got != tt.want {
			t.Fatalf("LimitFor(%q) = %d, want %d", tt.plan, got, tt.want)
		}
	}
}

func TestNormalizePlan(t *testing.T) {
	if got := NormalizePlan("growth"); got != "Growth" {
		t.Fatalf("NormalizePlan(growth) = %q, want Growth", got)
	}
	if got := NormalizePlan("unknown"); got != "Free" {
		t.Fatalf("NormalizePlan(unknown) = %q, want Free", got)
	}
}

package registry

import (
	"testing"

	"github.com/mmrzaf/cqlstress/internal/distribution"
)

func TestParseKnownDistributions(t *testing.T) {
	r := DefaultDistributionRegistry()

	tests := []struct {
		in            string
		want          string
		deterministic bool
	}{
		{"FIXED(34)", "FIXED(34)", true},
		{"fixed( 10 )", "FIXED(10)", true},
		{"SEQ(1..100)", "SEQ(1..100)", true},
		{"seq(1..1m)", "SEQ(1..1000000)", true},
		{"FIXED(9b)", "FIXED(9000000000)", true},
		{"SEQ(1..9223372036b)", "SEQ(1..9223372036000000000)", true},
		{"UNIFORM(1..100)", "UNIFORM(1..100)", false},
		{"GAUSSIAN(0..100,50,10)", "GAUSSIAN(0..100,50,10)", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := r.Parse(tt.in)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.in, err)
			}
			if d.String() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, d.String())
			}
			if d.Deterministic() != tt.deterministic {
				t.Fatalf("expected deterministic=%v", tt.deterministic)
			}
		})
	}
}

func TestParseGaussianStdvRange(t *testing.T) {
	r := DefaultDistributionRegistry()
	d, err := r.Parse("GAUSSIAN(30..70)")
	if err != nil {
		t.Fatal(err)
	}
	b, ok := d.(distribution.Bounded)
	if !ok {
		t.Fatal("expected gaussian to report bounds")
	}
	if b.Min() != 30 || b.Max() != 70 {
		t.Fatalf("unexpected bounds %d..%d", b.Min(), b.Max())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	r := DefaultDistributionRegistry()
	bad := []string{
		"",
		"SEQ",
		"SEQ()",
		"SEQ(1-100)",
		"SEQ(100..1)",
		"FIXED(1,2)",
		"FIXED(abc)",
		"ZIPF(1..10)",
		"UNIFORM(1..10",
		"GAUSSIAN(1..10,0)",
		"FIXED(20000000000b)",
		"FIXED(-20000000000b)",
		"SEQ(1..10000000000b)",
		"UNIFORM(1..9223372036854776k)",
	}
	for _, in := range bad {
		if _, err := r.Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestIsDeterministic(t *testing.T) {
	r := DefaultDistributionRegistry()
	if det, err := r.IsDeterministic("seq"); err != nil || !det {
		t.Fatalf("expected SEQ deterministic, got %v %v", det, err)
	}
	if det, err := r.IsDeterministic("UNIFORM"); err != nil || det {
		t.Fatalf("expected UNIFORM non-deterministic, got %v %v", det, err)
	}
	if _, err := r.IsDeterministic("nope"); err == nil {
		t.Fatal("expected unknown distribution error")
	}
}

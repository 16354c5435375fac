package mediflow

import "testing"

func TestIsAddress(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79c8", true},
		{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", true},
		{"0X70997970c51812dc3a010c7d01b50e0d17dc79c8", true},
		{"70997970c51812dc3a010c7d01b50e0d17dc79c8", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79c8ff", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79zz", false},
		{"", false},
	}

	for _, c := range cases {
		if got := IsAddress(c.in); got != c.want {
			t.Fatalf("IsAddress(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSameAddress(t *testing.T) {
	a := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	b := "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	if !SameAddress(a, b) {
		t.Fatalf("expected %s and %s to compare equal", a, b)
	}
	if SameAddress(a, "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc") {
		t.Fatalf("different addresses compared equal")
	}
}

func TestFormatAddress(t *testing.T) {
	got := FormatAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	if got != "0x7099...79c8" {
		t.Fatalf("unexpected short form %q", got)
	}
	if FormatAddress("0x1234") != "0x1234" {
		t.Fatalf("short input should pass through")
	}
}

func TestEncodeMetadata(t *testing.T) {
	s, err := EncodeMetadata(ActionGrant, GrantMetadata{
		Receiver:  "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		Level:     "read",
		ExpiresAt: 1735689600,
		Timestamp: 1735603200,
	})
	if err != nil {
		t.Fatalf("encode grant metadata failed: %v", err)
	}
	want := `{"receiver":"0x70997970c51812dc3a010c7d01b50e0d17dc79c8","level":"read","expiresAt":1735689600,"timestamp":1735603200}`
	if s != want {
		t.Fatalf("expected deterministic encoding\n got %s\nwant %s", s, want)
	}

	if _, err := EncodeMetadata(ActionRevoke, GrantMetadata{}); err == nil {
		t.Fatalf("expected mismatched metadata kind to be rejected")
	}
	if _, err := EncodeMetadata(ActionGrant, map[string]any{"x": 1}); err == nil {
		t.Fatalf("expected untyped metadata to be rejected")
	}
}

func TestParseAccessLevel(t *testing.T) {
	for _, s := range []string{"read", "Read"} {
		l, err := ParseAccessLevel(s)
		if err != nil || l != AccessLevelRead {
			t.Fatalf("ParseAccessLevel(%q) = %v, %v", s, l, err)
		}
	}
	if _, err := ParseAccessLevel("admin"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

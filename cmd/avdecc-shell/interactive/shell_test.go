package interactive

import "testing"

func TestParseEntityID(t *testing.T) {
	cases := []struct {
		in     string
		want   uint64
		wantOK bool
	}{
		{"001B21FFFE000001", 0x001B21FFFE000001, true},
		{"0x001B21FFFE000001", 0x001B21FFFE000001, true},
		{"0X1", 1, true},
		{"", 0, false},
		{"not-hex", 0, false},
	}
	for _, c := range cases {
		got, ok := parseEntityID(c.in)
		if ok != c.wantOK {
			t.Fatalf("parseEntityID(%q) ok = %v, want %v", c.in, ok, c.wantOK)
		}
		if ok && got != c.want {
			t.Fatalf("parseEntityID(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

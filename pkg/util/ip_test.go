package util

import (
	"errors"
	"testing"
)

func TestParseIPv4Network(t *testing.T) {
	tests := []struct {
		cidr    string
		want    string
		wantErr bool
	}{
		{"10.0.0.0/24", "10.0.0.0/24", false},
		{"10.0.0.17/24", "10.0.0.0/24", false},
		{"192.168.1.0/30", "192.168.1.0/30", false},
		{"10.0.0.0", "", true},
		{"10.0.0.0/33", "", true},
		{"fd00::/64", "", true},
		{"::ffff:10.0.0.0/120", "", true},
		{"", "", true},
		{"not-a-cidr", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			got, err := ParseIPv4Network(tt.cidr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIPv4Network(%q) error = %v, wantErr %v", tt.cidr, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidCIDR) {
					t.Errorf("error should wrap ErrInvalidCIDR: %v", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseIPv4Network(%q) = %s, want %s", tt.cidr, got, tt.want)
			}
		})
	}
}

func TestIsValidIPv4CIDR(t *testing.T) {
	tests := []struct {
		cidr string
		want bool
	}{
		{"172.16.0.0/16", true},
		{"10.1.1.1/32", true},
		{"10.1.1.1", false},
		{"2001:db8::/32", false},
		{"::ffff:10.0.0.0/120", false},
		{"::ffff:10.0.0.0/96", false},
		{"10.0.0.0/24 ", false},
	}

	for _, tt := range tests {
		if got := IsValidIPv4CIDR(tt.cidr); got != tt.want {
			t.Errorf("IsValidIPv4CIDR(%q) = %v, want %v", tt.cidr, got, tt.want)
		}
	}
}

func TestUsableRange(t *testing.T) {
	tests := []struct {
		cidr      string
		wantFirst string
		wantLast  string
	}{
		{"10.0.0.0/24", "10.0.0.1", "10.0.0.254"},
		{"10.0.0.0/30", "10.0.0.1", "10.0.0.2"},
		{"10.0.0.0/31", "10.0.0.0", "10.0.0.1"},
		{"10.0.0.5/32", "10.0.0.5", "10.0.0.5"},
		{"172.16.0.0/12", "172.16.0.1", "172.31.255.254"},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			n, err := ParseIPv4Network(tt.cidr)
			if err != nil {
				t.Fatalf("ParseIPv4Network(%q): %v", tt.cidr, err)
			}
			first, last := UsableRange(n)
			if first.String() != tt.wantFirst || last.String() != tt.wantLast {
				t.Errorf("UsableRange(%s) = %s-%s, want %s-%s", tt.cidr, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestTransitHostAddress(t *testing.T) {
	tests := []struct {
		name     string
		cidr     string
		want     string
		tooSmall bool
		invalid  bool
	}{
		{"slash 24", "10.0.0.0/24", "10.0.0.7", false, false},
		{"host bits set", "10.0.0.200/24", "10.0.0.7", false, false},
		{"slash 28", "192.168.10.16/28", "192.168.10.23", false, false},
		{"slash 16", "172.20.0.0/16", "172.20.0.7", false, false},
		{"slash 29 endpoint is broadcast", "10.0.0.0/29", "", true, false},
		{"slash 30", "10.0.0.0/30", "", true, false},
		{"slash 31", "10.0.0.0/31", "", true, false},
		{"slash 32", "10.0.0.1/32", "", true, false},
		{"unparseable", "10.0.0.0/abc", "", false, true},
		{"ipv6", "fd00::/64", "", false, true},
		{"ipv4-mapped /120", "::ffff:10.0.0.0/120", "", false, true},
		{"ipv4-mapped /96", "::ffff:10.0.0.0/96", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransitHostAddress(tt.cidr)
			if tt.tooSmall || tt.invalid {
				if err == nil {
					t.Fatalf("TransitHostAddress(%q) = %q, want error", tt.cidr, got)
				}
				if !errors.Is(err, ErrInvalidCIDR) {
					t.Errorf("error should wrap ErrInvalidCIDR: %v", err)
				}
				if tt.tooSmall != errors.Is(err, ErrSubnetTooSmall) {
					t.Errorf("errors.Is(err, ErrSubnetTooSmall) = %v, want %v", !tt.tooSmall, tt.tooSmall)
				}
				return
			}
			if err != nil {
				t.Fatalf("TransitHostAddress(%q) error: %v", tt.cidr, err)
			}
			if got != tt.want {
				t.Errorf("TransitHostAddress(%q) = %q, want %q", tt.cidr, got, tt.want)
			}
		})
	}
}

func TestTransitHostAddress_Deterministic(t *testing.T) {
	first, err := TransitHostAddress("100.64.3.0/27")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, _ := TransitHostAddress("100.64.3.0/27")
		if got != first {
			t.Fatalf("call %d returned %q, first call returned %q", i, got, first)
		}
	}
}

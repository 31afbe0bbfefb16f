package urlcheck

import (
	"testing"
)

func TestIsBlockedAddr_IPv4(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"0.0.0.0", true},
		{"0.255.255.255", true},
		{"10.0.0.1", true},
		{"10.255.255.255", true},
		{"127.0.0.1", true},
		{"127.255.255.255", true},
		{"169.254.169.254", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},

		{"1.1.1.1", false},
		{"8.8.8.8", false},
		{"9.255.255.255", false},
		{"11.0.0.0", false},
		{"126.255.255.255", false},
		{"128.0.0.1", false},
		{"169.253.255.255", false},
		{"169.255.0.0", false},
		{"172.15.255.255", false},
		{"172.32.0.0", false},
		{"192.167.255.255", false},
		{"192.169.0.0", false},
		{"203.0.113.10", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := IsBlockedAddr(tt.addr); got != tt.blocked {
				t.Errorf("IsBlockedAddr(%q) = %v, want %v", tt.addr, got, tt.blocked)
			}
		})
	}
}

func TestIsBlockedAddr_IPv6(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"::", true},
		{"::1", true},
		{"100::", true},
		{"100::1", true},
		{"64:ff9b::1", true},
		{"64:ff9b::ffff:ffff", true},
		{"2001::1", true},
		{"2001:1ff:ffff::1", true},
		{"2001:db8::1", true},
		{"2002::1", true},
		{"fc00::1", true},
		{"fd12:3456:789a::1", true},
		{"fe80::1", true},
		{"febf:ffff::1", true},
		{"ff02::1", true},

		{"2607:f8b0:4004:c07::6a", false},
		{"2606:4700:4700::1111", false},
		{"2001:200::1", false},
		{"2003::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := IsBlockedAddr(tt.addr); got != tt.blocked {
				t.Errorf("IsBlockedAddr(%q) = %v, want %v", tt.addr, got, tt.blocked)
			}
		})
	}
}

func TestIsBlockedAddr_MappedIPv4(t *testing.T) {
	// Both spellings of an IPv4-mapped loopback must unwrap to the IPv4
	// tables rather than sliding past the IPv6 intervals.
	blocked := []string{
		"::ffff:127.0.0.1",
		"::ffff:7f00:1",
		"::ffff:10.0.0.1",
		"::ffff:192.168.0.1",
		"::ffff:169.254.169.254",
	}
	for _, addr := range blocked {
		if !IsBlockedAddr(addr) {
			t.Errorf("IsBlockedAddr(%q) = false, want true", addr)
		}
	}

	allowed := []string{
		"::ffff:8.8.8.8",
		"::ffff:1.1.1.1",
	}
	for _, addr := range allowed {
		if IsBlockedAddr(addr) {
			t.Errorf("IsBlockedAddr(%q) = true, want false", addr)
		}
	}
}

func TestIsBlockedAddr_Unparseable(t *testing.T) {
	// Things that look like addresses but do not parse are treated as
	// blocked rather than resolved.
	for _, addr := range []string{
		"256.1.1.1",
		"1.2.3",
		"1.2.3.4.5",
		"01.2.3.4.",
		"",
		":::",
		"1:2:3:4:5:6:7:8:9",
		"2001:db8::1::2",
		"gggg::1",
	} {
		if !IsBlockedAddr(addr) {
			t.Errorf("IsBlockedAddr(%q) = false, want true", addr)
		}
	}
}

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"0.0.0.0", 0, true},
		{"255.255.255.255", 0xffffffff, true},
		{"192.168.1.1", 0xc0a80101, true},
		{"1.2.3.4", 0x01020304, true},
		{"256.0.0.0", 0, false},
		{"1.2.3", 0, false},
		{"1.2.3.4.5", 0, false},
		{"a.b.c.d", 0, false},
		{"1..2.3", 0, false},
		{"1.2.3.1234", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseIPv4(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseIPv4(%q) = (%#x, %v), want (%#x, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseIPv6(t *testing.T) {
	tests := []struct {
		in     string
		wantHi uint64
		wantLo uint64
		ok     bool
	}{
		{"::", 0, 0, true},
		{"::1", 0, 1, true},
		{"2001:db8::1", 0x20010db800000000, 1, true},
		{"fe80::1:2:3:4", 0xfe80000000000000, 0x0001000200030004, true},
		{"1:2:3:4:5:6:7:8", 0x0001000200030004, 0x0005000600070008, true},
		{"::ffff:1.2.3.4", 0, 0x0000ffff01020304, true},
		{"1:2:3:4:5:6:7:8:9", 0, 0, false},
		{"1:2:3:4:5:6:7", 0, 0, false},
		{"::1::2", 0, 0, false},
		{"1.2.3.4::5", 0, 0, false},
		{"12345::", 0, 0, false},
	}
	for _, tt := range tests {
		hi, lo, ok := parseIPv6(tt.in)
		if ok != tt.ok || (ok && (hi != tt.wantHi || lo != tt.wantLo)) {
			t.Errorf("parseIPv6(%q) = (%#x, %#x, %v), want (%#x, %#x, %v)",
				tt.in, hi, lo, ok, tt.wantHi, tt.wantLo, tt.ok)
		}
	}
}

func TestCmp128(t *testing.T) {
	if cmp128(0, 1, 0, 2) != -1 {
		t.Error("expected lo comparison to order values")
	}
	if cmp128(1, 0, 0, ^uint64(0)) != 1 {
		t.Error("expected hi half to dominate")
	}
	if cmp128(5, 5, 5, 5) != 0 {
		t.Error("expected equal values to compare as 0")
	}
}

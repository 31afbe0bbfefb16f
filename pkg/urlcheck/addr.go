package urlcheck

import (
	"strconv"
	"strings"
)

// ipv4Range is an inclusive interval over 32-bit addresses.
type ipv4Range struct {
	start uint32
	end   uint32
}

// blockedIPv4 lists private, loopback, link-local, and reserved IPv4 space.
var blockedIPv4 = []ipv4Range{
	{0x00000000, 0x00ffffff}, // 0.0.0.0/8      "this network"
	{0x0a000000, 0x0affffff}, // 10.0.0.0/8     private
	{0x7f000000, 0x7fffffff}, // 127.0.0.0/8    loopback
	{0xa9fe0000, 0xa9feffff}, // 169.254.0.0/16 link-local
	{0xac100000, 0xac1fffff}, // 172.16.0.0/12  private
	{0xc0a80000, 0xc0a8ffff}, // 192.168.0.0/16 private
}

// ipv6Range is an inclusive interval over 128-bit addresses, split into two
// 64-bit halves and compared lexicographically.
type ipv6Range struct {
	startHi, startLo uint64
	endHi, endLo     uint64
}

var blockedIPv6 = []ipv6Range{
	{0, 0, 0, 0}, // ::       unspecified
	{0, 1, 0, 1}, // ::1      loopback
	{0x0064ff9b00000000, 0, 0x0064ff9b00000000, 0xffffffff}, // 64:ff9b::/96  NAT64
	{0x0100000000000000, 0, 0x0100000000000000, ^uint64(0)}, // 100::/64      discard-only
	{0x2001000000000000, 0, 0x200101ffffffffff, ^uint64(0)}, // 2001::/23     Teredo and ORCHID
	{0x20010db800000000, 0, 0x20010db8ffffffff, ^uint64(0)}, // 2001:db8::/32 documentation
	{0x2002000000000000, 0, 0x2002ffffffffffff, ^uint64(0)}, // 2002::/16     6to4
	{0xfc00000000000000, 0, 0xfdffffffffffffff, ^uint64(0)}, // fc00::/7      unique-local
	{0xfe80000000000000, 0, 0xfebfffffffffffff, ^uint64(0)}, // fe80::/10     link-local
	{0xff00000000000000, 0, ^uint64(0), ^uint64(0)},         // ff00::/8      multicast
}

// parseIPv4 parses a dotted-quad address into a 32-bit integer. It rejects
// anything that is not exactly four decimal octets in [0,255].
func parseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var addr uint32
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return 0, false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, false
			}
		}
		octet, err := strconv.Atoi(part)
		if err != nil || octet > 255 {
			return 0, false
		}
		addr = addr<<8 | uint32(octet)
	}
	return addr, true
}

// parseIPv6 parses an IPv6 literal into two 64-bit halves, expanding a single
// "::" compression and an embedded dotted-quad tail. Bracket notation must be
// stripped by the caller.
func parseIPv6(s string) (hi, lo uint64, ok bool) {
	if s == "" || strings.Count(s, "::") > 1 {
		return 0, 0, false
	}

	var head, tail []string
	if i := strings.Index(s, "::"); i >= 0 {
		if left := s[:i]; left != "" {
			head = strings.Split(left, ":")
		}
		if right := s[i+2:]; right != "" {
			tail = strings.Split(right, ":")
		}
	} else {
		head = strings.Split(s, ":")
	}

	groups := make([]uint16, 0, 8)
	expand := func(parts []string, mayEmbedIPv4 bool) ([]uint16, bool) {
		out := make([]uint16, 0, len(parts)+1)
		for i, part := range parts {
			// An embedded IPv4 address may only appear as the final part
			// of the whole address.
			if strings.Contains(part, ".") {
				if !mayEmbedIPv4 || i != len(parts)-1 {
					return nil, false
				}
				v4, v4ok := parseIPv4(part)
				if !v4ok {
					return nil, false
				}
				out = append(out, uint16(v4>>16), uint16(v4))
				continue
			}
			if part == "" || len(part) > 4 {
				return nil, false
			}
			g, err := strconv.ParseUint(part, 16, 16)
			if err != nil {
				return nil, false
			}
			out = append(out, uint16(g))
		}
		return out, true
	}

	compressed := strings.Contains(s, "::")

	headGroups, hok := expand(head, !compressed)
	if !hok {
		return 0, 0, false
	}
	tailGroups, tok := expand(tail, true)
	if !tok {
		return 0, 0, false
	}

	if compressed {
		missing := 8 - len(headGroups) - len(tailGroups)
		if missing < 1 {
			return 0, 0, false
		}
		groups = append(groups, headGroups...)
		groups = append(groups, make([]uint16, missing)...)
		groups = append(groups, tailGroups...)
	} else {
		groups = headGroups
	}

	if len(groups) != 8 {
		return 0, 0, false
	}

	for i := 0; i < 4; i++ {
		hi = hi<<16 | uint64(groups[i])
	}
	for i := 4; i < 8; i++ {
		lo = lo<<16 | uint64(groups[i])
	}
	return hi, lo, true
}

// mappedIPv4 extracts the embedded IPv4 address from an IPv4-mapped IPv6
// address (::ffff:a.b.c.d) if present.
func mappedIPv4(hi, lo uint64) (uint32, bool) {
	if hi == 0 && lo>>32 == 0xffff {
		return uint32(lo), true
	}
	return 0, false
}

// IsBlockedIPv4 reports whether the 32-bit address falls in a blocked range.
func IsBlockedIPv4(addr uint32) bool {
	for _, r := range blockedIPv4 {
		if addr >= r.start && addr <= r.end {
			return true
		}
	}
	return false
}

// IsBlockedIPv6 reports whether the 128-bit address falls in a blocked range.
// IPv4-mapped addresses are unwrapped and checked against the IPv4 list, so a
// literal like ::ffff:127.0.0.1 cannot slip past the IPv6 intervals.
func IsBlockedIPv6(hi, lo uint64) bool {
	if v4, ok := mappedIPv4(hi, lo); ok {
		return IsBlockedIPv4(v4)
	}
	for _, r := range blockedIPv6 {
		if cmp128(hi, lo, r.startHi, r.startLo) >= 0 && cmp128(hi, lo, r.endHi, r.endLo) <= 0 {
			return true
		}
	}
	return false
}

// IsBlockedAddr classifies a literal IPv4 or IPv6 address string. Unparseable
// literals are treated as blocked: a hostname that looks like an address but
// does not parse is not worth resolving.
func IsBlockedAddr(literal string) bool {
	if v4, ok := parseIPv4(literal); ok {
		return IsBlockedIPv4(v4)
	}
	if hi, lo, ok := parseIPv6(literal); ok {
		return IsBlockedIPv6(hi, lo)
	}
	return true
}

// IsAddrLiteral reports whether the hostname is an IPv4 or IPv6 literal.
func IsAddrLiteral(host string) bool {
	if _, ok := parseIPv4(host); ok {
		return true
	}
	if _, _, ok := parseIPv6(host); ok {
		return true
	}
	return false
}

// cmp128 compares two 128-bit values given as 64-bit halves.
func cmp128(aHi, aLo, bHi, bLo uint64) int {
	switch {
	case aHi < bHi:
		return -1
	case aHi > bHi:
		return 1
	case aLo < bLo:
		return -1
	case aLo > bLo:
		return 1
	default:
		return 0
	}
}

// Package urlcheck validates webhook destination URLs against SSRF.
//
// # Overview
//
// Validation is two-phase. The synchronous string check (Validator.ValidateURL)
// runs at registration time: scheme policy, blocked hostnames, and literal
// address classification, with a bounded result cache. The resolution check
// (Validator.ValidateResolved) runs immediately before every physical delivery
// attempt and classifies every address the hostname currently resolves to,
// closing the DNS-rebinding window between registration and send.
//
// # Blocked Address Ranges
//
// IPv4: 0.0.0.0/8, 10.0.0.0/8, 127.0.0.0/8, 169.254.0.0/16, 172.16.0.0/12,
// 192.168.0.0/16.
//
// IPv6: ::, ::1, 100::/64, 64:ff9b::/96, 2001::/23, 2001:db8::/32, 2002::/16,
// fc00::/7, fe80::/10, ff00::/8. IPv4-mapped addresses (::ffff:a.b.c.d) are
// unwrapped and re-checked against the IPv4 list.
package urlcheck

package research

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	errInvalidURLScheme = errors.New("unsupported url scheme")
	errBlockedURLHost   = errors.New("blocked url host")
	errBlockedURLPort   = errors.New("blocked url port")
)

var blockedHostSuffixes = []string{".localhost", ".local", ".internal", ".home.arpa"}

// Ranges that netip's predicates do not already cover.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

func validateSourceURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return nil, errInvalidURLScheme
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return nil, errors.New("url host is required")
	}
	if parsed.User != nil {
		return nil, errors.New("url credentials are not allowed")
	}
	if isBlockedHostname(hostname) {
		return nil, errBlockedURLHost
	}
	switch parsed.Port() {
	case "", "80", "443":
	default:
		return nil, errBlockedURLPort
	}
	return parsed, nil
}

func isBlockedHostname(hostname string) bool {
	hostname = strings.TrimSuffix(hostname, ".")
	if hostname == "localhost" {
		return true
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}
	if ip, err := netip.ParseAddr(hostname); err == nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip netip.Addr) bool {
	if !ip.IsValid() {
		return true
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

// secureDialContext resolves the host itself and refuses to connect when any
// address is private, closing the DNS rebinding gap left by URL checks.
func secureDialContext(base *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	if base == nil {
		base = &net.Dialer{}
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		if isBlockedHostname(strings.ToLower(host)) {
			return nil, errBlockedURLHost
		}

		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no ip addresses for host %q", host)
		}
		for _, addr := range addrs {
			if isPrivateIP(addr) {
				return nil, errBlockedURLHost
			}
		}
		return base.DialContext(ctx, network, net.JoinHostPort(addrs[0].String(), port))
	}
}

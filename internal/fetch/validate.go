package fetch

import (
	"fmt"
	"net"
	"net/url"
)

// Source URLs are tenant-supplied, so the chain refuses obviously internal
// targets before any strategy runs. This is the static half of the guard;
// the safeurl-built clients used by the proxy strategies also validate the
// dialed IP after DNS resolution.
var blockedNetworks []*net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid blocked CIDR %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, network)
	}
}

// ValidateTargetURL rejects non-HTTP schemes and literal-IP hosts inside
// blocked ranges.
func ValidateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("url has no host")
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("host %s is in a blocked range", u.Hostname())
			}
		}
	}
	return nil
}

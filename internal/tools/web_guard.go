package tools

import (
	"fmt"
	"net"
	"net/url"
)

// validateURL checks scheme and host; only http/https are allowed.
func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http/https URLs are allowed")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL missing domain")
	}
	return nil
}

// checkSSRF rejects URLs whose host resolves to a loopback, private, or
// link-local address.
func checkSSRF(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return fmt.Errorf("requests to internal addresses are not allowed")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Unresolvable hosts fail later at connect time.
		return nil
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("requests to internal addresses are not allowed")
		}
	}
	return nil
}

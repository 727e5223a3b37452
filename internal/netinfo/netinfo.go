// Package netinfo locates the host's LAN-reachable address so the server can
// advertise a base URL. Detection is advisory only; the server answers on
// whatever address actually reaches it.
package netinfo

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoAddress signals that no LAN-suitable address was found and the
// loopback fallback is in use. Callers should warn, not abort.
var ErrNoAddress = errors.New("no suitable LAN address found")

const fallbackIP = "127.0.0.1"

// LocalIP returns the machine's best-guess LAN-facing IP address. A UDP dial
// to a public address reveals the preferred outbound interface without
// sending any packets; if that fails, interfaces are enumerated directly.
// On total failure it returns the loopback address together with ErrNoAddress.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && usable(addr.IP) {
			return addr.IP.String(), nil
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fallbackIP, fmt.Errorf("enumerate interfaces: %w", ErrNoAddress)
	}

	// First pass IPv4, second pass IPv6.
	var v6 string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || !usable(ipnet.IP) {
			continue
		}
		if ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
		if v6 == "" {
			v6 = ipnet.IP.String()
		}
	}
	if v6 != "" {
		return v6, nil
	}
	return fallbackIP, ErrNoAddress
}

// usable reports whether ip is a real LAN candidate: not loopback, not
// link-local, not unspecified.
func usable(ip net.IP) bool {
	return ip != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() && !ip.IsUnspecified()
}

// BaseURL combines an IP and port into the http URL advertised to clients.
func BaseURL(ip string, port int) string {
	if p := net.ParseIP(ip); p != nil && p.To4() == nil {
		return fmt.Sprintf("http://[%s]:%d", ip, port)
	}
	return fmt.Sprintf("http://%s:%d", ip, port)
}

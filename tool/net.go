package tool

import (
	"fmt"
	"net"
	"slices"
)

func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}

		ipv4 := ip.To4()
		if ipv4 == nil {
			continue
		}

		result[ipv4.String()] = struct{}{}
	}

	return result
}

// PreferredLocalIPv4 picks a stable LAN address, preferring private ranges.
// Falls back to 127.0.0.1 when the host has no usable interface.
func PreferredLocalIPv4() string {
	set := GetLocalIPv4Set()
	ips := make([]string, 0, len(set))
	for ip := range set {
		ips = append(ips, ip)
	}
	slices.Sort(ips)
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.IsPrivate() {
			return ip
		}
	}
	if len(ips) > 0 {
		return ips[0]
	}
	return "127.0.0.1"
}

// BuildPageURL builds the URL a phone on the same network can open.
func BuildPageURL(protocol, host string, port int) string {
	if protocol == "" {
		protocol = "http"
	}
	return fmt.Sprintf("%s://%s/", protocol, net.JoinHostPort(host, fmt.Sprint(port)))
}

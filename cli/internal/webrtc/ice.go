package webrtc

import (
	"net"
	"strings"

	"github.com/BioHazard786/Warpcall/cli/internal/config"
	pion "github.com/pion/webrtc/v4"
)

// cgnat is 100.64.0.0/10, used by carrier NAT, Tailscale and WARP.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// tunnelMarkers are interface name fragments of VPN and virtual adapters.
var tunnelMarkers = []string{"tun", "tap", "wg", "ppp", "warp"}

// iceConfiguration builds the peer connection configuration from cfg.
// Relay-only policy applies when asked for, or when this host looks like
// it sits behind a tunnel or CGNAT, as long as a TURN server exists.
func iceConfiguration(cfg *config.Config, behindTunnel func() bool) pion.Configuration {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}

	turn := cfg.GetTURNServers()
	if turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turn != nil && (cfg.ForceRelay || behindTunnel()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         servers,
		ICETransportPolicy: policy,
	}
}

// behindTunnel reports whether an active interface looks like a VPN or
// carries a CGNAT address. Direct paths often fail there.
func behindTunnel() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if tunnelName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && cgnat.Contains(ipnet.IP) {
				return true
			}
		}
	}
	return false
}

func tunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range tunnelMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

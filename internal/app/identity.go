package app

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var netInterfaces = net.Interfaces

// deviceIdentity returns override when set, otherwise the hardware address of
// the first interface that is not loopback.
func deviceIdentity(override string, interfaces func() ([]net.Interface, error)) (string, error) {
	if id := strings.TrimSpace(override); id != "" {
		return id, nil
	}

	ifaces, err := interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String(), nil
	}
	return "", errors.New("no interface with a hardware address")
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint is the sensor source address. Host must be an IP literal.
type Endpoint struct {
	Host string
	Port int
}

// String returns the host:port form used for dialing.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) validate() error {
	if net.ParseIP(e.Host) == nil {
		return &ConnectError{
			Kind:     AddressInvalid,
			Endpoint: e,
			Err:      fmt.Errorf("host %q is not an IP address", e.Host),
		}
	}
	if e.Port < 1 || e.Port > 65535 {
		return &ConnectError{
			Kind:     AddressInvalid,
			Endpoint: e,
			Err:      fmt.Errorf("port %d out of range 1-65535", e.Port),
		}
	}
	return nil
}

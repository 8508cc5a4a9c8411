// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ConnectErrorKind classifies why a connect attempt failed.
type ConnectErrorKind int

const (
	// AddressInvalid: the endpoint host or port does not parse.
	AddressInvalid ConnectErrorKind = iota + 1
	// SocketCreateFailed: the OS refused to allocate a socket.
	SocketCreateFailed
	// ConnectFailed: the socket exists but the connection was not established.
	ConnectFailed
)

func (k ConnectErrorKind) String() string {
	switch k {
	case AddressInvalid:
		return "address invalid"
	case SocketCreateFailed:
		return "socket create failed"
	case ConnectFailed:
		return "connect failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against a *ConnectError.
var (
	ErrAddressInvalid     = errors.New("address invalid")
	ErrSocketCreateFailed = errors.New("socket create failed")
	ErrConnectFailed      = errors.New("connect failed")
)

var (
	ErrNotConnected   = errors.New("bridge: no live connection")
	ErrAlreadyRunning = errors.New("bridge: already running")
	ErrStopTimeout    = errors.New("bridge: receiver did not stop within grace period")
)

// ConnectError is returned by connect operations. Code carries the OS error
// number for ConnectFailed and SocketCreateFailed when one is available.
type ConnectError struct {
	Kind     ConnectErrorKind
	Endpoint Endpoint
	Code     int
	Err      error
}

func (e *ConnectError) Error() string {
	msg := fmt.Sprintf("bridge: %s: %s", e.Kind, e.Endpoint)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool {
	switch target {
	case ErrAddressInvalid:
		return e.Kind == AddressInvalid
	case ErrSocketCreateFailed:
		return e.Kind == SocketCreateFailed
	case ErrConnectFailed:
		return e.Kind == ConnectFailed
	}
	return false
}

// classifyDialError maps a dial error to a ConnectError. Socket allocation
// failures surface from the net package as an *os.SyscallError named "socket".
func classifyDialError(ep Endpoint, err error) *ConnectError {
	ce := &ConnectError{Kind: ConnectFailed, Endpoint: ep, Err: err}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "socket" {
		ce.Kind = SocketCreateFailed
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		ce.Code = int(errno)
	}
	return ce
}

// Package networking validates listen addresses and finds free ports for tests.
package networking

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	ErrEmptyAddr      = errors.New("listen address cannot be empty")
	ErrInvalidFormat  = errors.New("invalid listen address")
	ErrPortOutOfRange = errors.New("port number must be between 0 and 65535")
)

// NormalizeListenAddr validates a listen address and returns it in host:port form.
// A bare port such as "9100" becomes ":9100". Port 0 is accepted and lets the OS
// pick a free port.
func NormalizeListenAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrEmptyAddr
	}
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return "", fmt.Errorf("%w: port %q is not a number", ErrInvalidFormat, port)
	}
	if n < 0 || n > 65535 {
		return "", fmt.Errorf("%w: %d", ErrPortOutOfRange, n)
	}
	return net.JoinHostPort(host, strconv.Itoa(n)), nil
}

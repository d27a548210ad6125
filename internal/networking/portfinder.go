package networking

import (
	"fmt"
	"net"
	"sync"
	"testing"
)

var (
	portMutex sync.Mutex
	usedPorts = make(map[int]struct{})
)

// GetRandomPort returns a free TCP port that no other caller in this process has
// been given.
func GetRandomPort(tb testing.TB) int {
	tb.Helper()
	portMutex.Lock()
	defer portMutex.Unlock()

	for {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			tb.Fatalf("Failed to get random port: %v", err)
		}
		p := ln.Addr().(*net.TCPAddr).Port
		if err := ln.Close(); err != nil {
			tb.Fatalf("Failed to close listener: %v", err)
		}
		if _, used := usedPorts[p]; used {
			continue
		}
		usedPorts[p] = struct{}{}
		return p
	}
}

// GetRandomListeningAddr returns "127.0.0.1:PORT" for a free port.
func GetRandomListeningAddr(tb testing.TB) string {
	tb.Helper()
	return fmt.Sprintf("127.0.0.1:%d", GetRandomPort(tb))
}

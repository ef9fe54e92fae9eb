package netutil

import (
	"context"
	"testing"
)

func TestListenBindsEphemeralPort(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	if ln.Addr() == nil {
		t.Fatal("expected a bound address")
	}
}

package discovery

import (
	"context"
	"testing"
)

func TestAdvertiseDisabledIsNoop(t *testing.T) {
	cleanup, err := Advertise(context.Background(), Config{Enable: false}, 12345)
	if err != nil {
		t.Fatalf("Advertise: %v", err)
	}
	cleanup() // must not panic
}

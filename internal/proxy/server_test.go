package proxy

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/agar-cache/agar/internal/allocator"
)

func TestServerAnswersRecipeRequest(t *testing.T) {
	alloc := allocator.New(allocator.Config{K: 4, M: 2, Budget: 6, Decay: 1.0}, nil)
	alloc.OnAccess("obj1")
	alloc.Reallocate()

	srv := New(alloc, nil)
	if err := srv.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Stop()

	host, portStr, err := net.SplitHostPort(srv.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("failed to split host/port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("failed to parse port: %v", err)
	}

	client, err := DialRPCClient(host, port, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("DialRPCClient failed: %v", err)
	}
	defer client.Close()

	c, err := client.RequestRecipe(context.Background(), "obj1")
	if err != nil {
		t.Fatalf("RequestRecipe failed: %v", err)
	}
	if c != 6 {
		t.Errorf("cachedBlocks = %d, want 6", c)
	}
}

func TestServerTimesOutForUnreachableProxy(t *testing.T) {
	client, err := DialRPCClient("127.0.0.1", 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("DialRPCClient failed: %v", err)
	}
	defer client.Close()

	_, err = client.RequestRecipe(context.Background(), "obj1")
	if err == nil {
		t.Fatal("expected RequestRecipe to fail against an unreachable proxy")
	}
}

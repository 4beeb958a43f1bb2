package proxy

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/agar-cache/agar/pkg/errors"
)

// RPCClient is the client-side UDP proxy RPC adapter (§4.4): one outstanding
// request per call, no session state, idempotent retries.
type RPCClient struct {
	conn    *net.UDPConn
	timeout time.Duration
}

// DialRPCClient connects to the proxy's recipe server at host:port.
func DialRPCClient(host string, port int, timeout time.Duration) (*RPCClient, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeConfig, "failed to resolve proxy address").
			WithComponent("proxy-client").WithCause(err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeProxyUnreachable, "failed to dial proxy").
			WithComponent("proxy-client").WithCause(err)
	}

	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}

	return &RPCClient{conn: conn, timeout: timeout}, nil
}

// RequestRecipe sends a RECIPE_REQ and awaits the RECIPE_REP within T1 (default
// 200ms). On timeout, returns cachedBlocks=0 and ErrProxyUnreachable (§4.3
// step 1) — the caller proceeds as if c=0, never blocking a read on the proxy.
func (c *RPCClient) RequestRecipe(ctx context.Context, key string) (int, error) {
	frame, err := encodeRequest(key)
	if err != nil {
		return 0, err
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = c.conn.SetDeadline(deadline)

	if _, err := c.conn.Write(frame); err != nil {
		return 0, errors.NewError(errors.ErrCodeProxyUnreachable, "failed to send recipe request").
			WithComponent("proxy-client").WithCause(err)
	}

	buf := make([]byte, maxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return 0, errors.NewError(errors.ErrCodeProxyUnreachable, "recipe request timed out").
			WithComponent("proxy-client").WithCause(err)
	}

	reply, err := decodeReply(buf[:n])
	if err != nil {
		return 0, errors.NewError(errors.ErrCodeProxyUnreachable, "malformed recipe reply").
			WithComponent("proxy-client").WithCause(err)
	}

	return reply.cachedBlocks, nil
}

// Close releases the underlying UDP socket.
func (c *RPCClient) Close() error {
	return c.conn.Close()
}

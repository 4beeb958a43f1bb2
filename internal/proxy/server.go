package proxy

import (
	"context"
	"net"
	"strconv"

	"github.com/agar-cache/agar/internal/allocator"
	"github.com/agar-cache/agar/pkg/errors"
	"github.com/agar-cache/agar/pkg/utils"
)

const maxDatagramSize = 2048

// Server is the stateless UDP recipe responder.
type Server struct {
	alloc  *allocator.Allocator
	logger *utils.StructuredLogger
	conn   *net.UDPConn
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a recipe server bound to the given allocator.
func New(alloc *allocator.Allocator, logger *utils.StructuredLogger) *Server {
	return &Server{alloc: alloc, logger: logger}
}

// Start binds the UDP socket at host:port and begins serving recipe requests
// on a background goroutine.
func (s *Server) Start(host string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return errors.NewError(errors.ErrCodeConfig, "failed to resolve recipe server address").
			WithComponent("proxy").WithCause(err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfig, "failed to bind recipe server socket").
			WithComponent("proxy").WithCause(err)
	}

	s.conn = conn
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.serve()

	if s.logger != nil {
		s.logger.Info("recipe server listening", map[string]interface{}{"addr": conn.LocalAddr().String()})
	}
	return nil
}

func (s *Server) serve() {
	defer close(s.doneCh)

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				continue
			}
		}

		s.handle(buf[:n], raddr)
	}
}

// handle implements the §4.2 state machine: parse, OnAccess, RecipeOf,
// serialize, reply. Malformed requests are silently dropped.
func (s *Server) handle(frame []byte, raddr *net.UDPAddr) {
	req, err := decodeRequest(frame)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("dropping malformed recipe request", map[string]interface{}{"from": raddr.String()})
		}
		return
	}

	s.alloc.OnAccess(req.key)
	c := s.alloc.RecipeOf(req.key)

	reply, err := encodeReply(recipeReply{key: req.key, cachedBlocks: c})
	if err != nil {
		return
	}

	_, _ = s.conn.WriteToUDP(reply, raddr)
}

// HealthCheck reports whether the UDP recipe socket is currently bound.
func (s *Server) HealthCheck(ctx context.Context) error {
	if s.conn == nil {
		return errors.NewError(errors.ErrCodeProxyUnreachable, "recipe server socket not bound").
			WithComponent("proxy")
	}
	return nil
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *Server) Stop() error {
	if s.conn == nil {
		return nil
	}
	close(s.stopCh)
	_ = s.conn.Close()
	<-s.doneCh
	return nil
}

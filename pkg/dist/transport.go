package dist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/rpc"
	"strings"

	"github.com/pjavanrood/csrbench/pkg/csr"
	rpcTypes "github.com/pjavanrood/csrbench/pkg/rpc"
)

// Server exposes one Partition over net/rpc with the msgpack codec.
type Server struct {
	partition *Partition
	rpc       *rpc.Server
}

// NewServer registers p as the "Partition" service.
func NewServer(p *Partition) (*Server, error) {
	serv := rpc.NewServer()
	if err := serv.Register(p); err != nil {
		return nil, fmt.Errorf("failed to register partition %d: %w", p.ID(), err)
	}
	return &Server{partition: p, rpc: serv}, nil
}

// ServeConn serves requests from one connection until it is closed.
func (s *Server) ServeConn(conn io.ReadWriteCloser) {
	s.rpc.ServeCodec(NewServerCodec(conn))
}

// Serve accepts connections on listener until it is closed.
func (s *Server) Serve(listener net.Listener) error {
	log.Printf("Partition %d RPC server listening on %s", s.partition.ID(), listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warnf("Failed to accept connection: %v", err)
			continue
		}
		go s.ServeConn(conn)
	}
}

// ListenAndServe listens on addr and serves until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// ------------------------------------------------------------

// Client calls one partition. Every call honours ctx: a cancelled call
// returns ctx.Err() and its late reply is dropped.
type Client struct {
	id   int
	addr string
	rpc  *rpc.Client
}

// Dial connects to the partition with the given id at addr over TCP.
func Dial(id int, addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to partition %d at %s: %w", id, addr, err)
	}
	return &Client{id: id, addr: addr, rpc: rpc.NewClientWithCodec(NewClientCodec(conn))}, nil
}

// ServeInProcess serves p over an in-memory pipe and returns a client for it.
func ServeInProcess(p *Partition) (*Client, error) {
	srv, err := NewServer(p)
	if err != nil {
		return nil, err
	}
	serverConn, clientConn := net.Pipe()
	go srv.ServeConn(serverConn)
	return &Client{
		id:   p.ID(),
		addr: fmt.Sprintf("pipe:%d", p.ID()),
		rpc:  rpc.NewClientWithCodec(NewClientCodec(clientConn)),
	}, nil
}

// ID returns the partition id the client talks to.
func (c *Client) ID() int { return c.id }

// Addr returns the partition address.
func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error { return c.rpc.Close() }

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := c.rpc.Go("Partition."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-call.Done:
		if done.Error != nil {
			return fmt.Errorf("RPC call to partition %d failed: %w", c.id, remoteError(done.Error))
		}
		return nil
	}
}

// structuralError is a partition's structural rejection received over RPC.
type structuralError struct{ msg string }

func (e *structuralError) Error() string { return e.msg }

func (e *structuralError) Unwrap() error { return csr.ErrStructural }

// remoteError restores csr.ErrStructural on server errors, which net/rpc
// delivers as plain strings.
func remoteError(err error) error {
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) && strings.Contains(string(serverErr), csr.ErrStructural.Error()) {
		return &structuralError{msg: string(serverErr)}
	}
	return err
}

func (c *Client) Load(ctx context.Context, req rpcTypes.LoadRequest) (*rpcTypes.LoadResponse, error) {
	var resp rpcTypes.LoadResponse
	if err := c.call(ctx, "Load", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("partition %d failed to load graph", c.id)
	}
	return &resp, nil
}

func (c *Client) Reset(ctx context.Context, traversal uint64) error {
	var resp rpcTypes.ResetResponse
	if err := c.call(ctx, "Reset", rpcTypes.ResetRequest{TraversalID: traversal}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("partition %d failed to reset", c.id)
	}
	return nil
}

func (c *Client) Claim(ctx context.Context, req rpcTypes.ClaimRequest) (*rpcTypes.ClaimResponse, error) {
	var resp rpcTypes.ClaimResponse
	if err := c.call(ctx, "Claim", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Expand(ctx context.Context, req rpcTypes.ExpandRequest) (*rpcTypes.ExpandResponse, error) {
	var resp rpcTypes.ExpandResponse
	if err := c.call(ctx, "Expand", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Status(ctx context.Context) (*rpcTypes.StatusResponse, error) {
	var resp rpcTypes.StatusResponse
	if err := c.call(ctx, "Status", rpcTypes.StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package dist

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/rpc"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

type requestHeader struct {
	Method string
	Seq    uint64
}

type responseHeader struct {
	Method string
	Seq    uint64
	Error  string
}

// msgpackCodec frames net/rpc headers and bodies as consecutive msgpack
// values on one connection.
type msgpackCodec struct {
	conn io.ReadWriteCloser
	bw   *bufio.Writer
	enc  *codec.Encoder
	dec  *codec.Decoder
}

func newMsgpackCodec(conn io.ReadWriteCloser) *msgpackCodec {
	bw := bufio.NewWriter(conn)
	return &msgpackCodec{
		conn: conn,
		bw:   bw,
		enc:  codec.NewEncoder(bw, msgpackHandle),
		dec:  codec.NewDecoder(bufio.NewReader(conn), msgpackHandle),
	}
}

func (c *msgpackCodec) write(header, body interface{}) error {
	if err := c.enc.Encode(header); err != nil {
		return err
	}
	if err := c.enc.Encode(body); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *msgpackCodec) readBody(body interface{}) error {
	if body == nil {
		var discard interface{}
		return c.dec.Decode(&discard)
	}
	return c.dec.Decode(body)
}

func (c *msgpackCodec) Close() error {
	return c.conn.Close()
}

// ------------------------------------------------------------

type clientCodec struct{ *msgpackCodec }

// NewClientCodec returns an rpc.ClientCodec speaking msgpack over conn.
func NewClientCodec(conn io.ReadWriteCloser) rpc.ClientCodec {
	return &clientCodec{newMsgpackCodec(conn)}
}

func (c *clientCodec) WriteRequest(r *rpc.Request, body interface{}) error {
	return c.write(&requestHeader{Method: r.ServiceMethod, Seq: r.Seq}, body)
}

func (c *clientCodec) ReadResponseHeader(r *rpc.Response) error {
	var h responseHeader
	if err := c.dec.Decode(&h); err != nil {
		return err
	}
	r.ServiceMethod = h.Method
	r.Seq = h.Seq
	r.Error = h.Error
	return nil
}

func (c *clientCodec) ReadResponseBody(body interface{}) error {
	return c.readBody(body)
}

// ------------------------------------------------------------

type serverCodec struct{ *msgpackCodec }

// NewServerCodec returns an rpc.ServerCodec speaking msgpack over conn.
func NewServerCodec(conn io.ReadWriteCloser) rpc.ServerCodec {
	return &serverCodec{newMsgpackCodec(conn)}
}

func (c *serverCodec) ReadRequestHeader(r *rpc.Request) error {
	var h requestHeader
	if err := c.dec.Decode(&h); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
			return io.EOF
		}
		return err
	}
	r.ServiceMethod = h.Method
	r.Seq = h.Seq
	return nil
}

func (c *serverCodec) ReadRequestBody(body interface{}) error {
	return c.readBody(body)
}

func (c *serverCodec) WriteResponse(r *rpc.Response, body interface{}) error {
	return c.write(&responseHeader{Method: r.ServiceMethod, Seq: r.Seq, Error: r.Error}, body)
}

// Package gmp is a client for the Greenbone Management Protocol spoken by
// gvmd. Commands are XML documents written to a TLS or unix socket
// connection; each is answered by exactly one root response element.
package gmp

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/anstrom/assessor/internal/errors"
)

const defaultRequestTimeout = 2 * time.Minute

// Conn is a single GMP connection. Requests are serialized.
type Conn struct {
	mu      sync.Mutex
	conn    net.Conn
	dec     *xml.Decoder
	timeout time.Duration
	addr    string
}

// NewConn wraps an established connection. timeout bounds every request that
// has no earlier context deadline.
func NewConn(conn net.Conn, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Conn{
		conn:    conn,
		dec:     xml.NewDecoder(conn),
		timeout: timeout,
		addr:    conn.RemoteAddr().String(),
	}
}

// DialTLS connects to gvmd over TLS.
func DialTLS(ctx context.Context, address string, skipVerify bool, timeout time.Duration) (*Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			InsecureSkipVerify: skipVerify, //nolint:gosec // gvmd ships a self-signed certificate
			MinVersion:         tls.VersionTLS12,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.ErrConnection(address, err)
	}
	c := NewConn(conn, timeout)
	c.addr = address
	return c, nil
}

// DialUnix connects to gvmd over its unix socket.
func DialUnix(ctx context.Context, path string, timeout time.Duration) (*Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, errors.ErrConnection(path, err)
	}
	c := NewConn(conn, timeout)
	c.addr = path
	return c, nil
}

// Address returns the dialed address.
func (c *Conn) Address() string {
	return c.addr
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Do writes cmd and decodes the response element into resp. A gmp_response
// element, sent by gvmd for malformed or unknown commands, is returned as a
// REMOTE_REJECTION error.
func (c *Conn) Do(ctx context.Context, cmd, resp any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return c.transportError("set deadline", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := xml.NewEncoder(c.conn).Encode(cmd); err != nil {
		return c.wrapCtx(ctx, "write command", err)
	}

	start, err := c.nextStart()
	if err != nil {
		return c.wrapCtx(ctx, "read response", err)
	}

	if start.Name.Local == "gmp_response" {
		var gr gmpResponse
		if err := c.dec.DecodeElement(&gr, &start); err != nil {
			return c.wrapCtx(ctx, "read response", err)
		}
		return errors.ErrRemoteRejection("command", gr.Status, gr.StatusText)
	}

	if err := c.dec.DecodeElement(resp, &start); err != nil {
		var unmarshalErr xml.UnmarshalError
		if stderrors.As(err, &unmarshalErr) {
			// unexpected root element, drain it to stay in sync
			_ = c.dec.Skip()
			return errors.WrapAssessmentError(errors.CodeProtocol, "unexpected response "+start.Name.Local, err)
		}
		return c.wrapCtx(ctx, "decode "+start.Name.Local, err)
	}
	return nil
}

// nextStart skips to the next root start element.
func (c *Conn) nextStart() (xml.StartElement, error) {
	for {
		tok, err := c.dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func (c *Conn) wrapCtx(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.WrapAssessmentError(errors.CodeCanceled, op+" canceled", ctxErr)
	}
	var syntaxErr *xml.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return errors.WrapAssessmentError(errors.CodeProtocol, op+": malformed response", err)
	}
	return c.transportError(op, err)
}

func (c *Conn) transportError(op string, err error) error {
	if stderrors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return errors.WrapAssessmentError(errors.CodeConnectionFailure, op+" failed", err).
		WithContext("address", c.addr)
}

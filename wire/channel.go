package wire

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"io"
	"math/big"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/feras-hamam/adastream/xerr"
)

// Channel is the paired point-to-point bidirectional framed-message
// transport contract from spec §4.1: order-preserving send/recv of
// opaque messages, with a zero-length message a valid, distinct value.
type Channel interface {
	Send(msg []byte) error
	Recv() ([]byte, error)
	Close() error
}

// quicChannel adapts one QUIC stream to the Channel contract with a
// uint32-little-endian length prefix per message.
type quicChannel struct {
	conn   quic.Connection
	stream quic.Stream
}

func (c *quicChannel) Send(msg []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(msg)))
	if _, err := c.stream.Write(hdr[:]); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "send: write length header")
	}
	if len(msg) > 0 {
		if _, err := c.stream.Write(msg); err != nil {
			return xerr.Wrap(xerr.KindTransportFault, err, "send: write payload")
		}
	}
	return nil
}

func (c *quicChannel) Recv() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(c.stream, hdr[:]); err != nil {
		return nil, xerr.Wrap(xerr.KindTransportFault, err, "recv: read length header")
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.stream, buf); err != nil {
		return nil, xerr.Wrap(xerr.KindTransportFault, err, "recv: read payload")
	}
	return buf, nil
}

func (c *quicChannel) Close() error {
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "done")
}

// DialTimeout is the default budget for establishing one stream's QUIC
// connection before the caller sees TransportInit.
var DialTimeout = 10 * time.Second

// Dial connects to addr (sender side) and opens the single bidirectional
// stream used for the lifetime of the session.
func Dial(ctx context.Context, addr string) (Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	tlsConf := &tls.Config{
		InsecureSkipVerify: true, // point-to-point private transport, not a public service
		NextProtos:         []string{"adastream"},
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "dial %s", addr)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "open stream to %s", addr)
	}
	return &quicChannel{conn: conn, stream: stream}, nil
}

// Listener accepts one Channel per incoming QUIC connection (receiver side).
type Listener struct {
	ql *quic.Listener
}

// Listen binds addr (receiver side).
func Listen(addr string) (*Listener, error) {
	tlsConf, err := selfSignedTLSConfig()
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "build TLS config")
	}
	ql, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "listen %s", addr)
	}
	return &Listener{ql: ql}, nil
}

// Accept blocks for the one connection the paired sender establishes and
// returns its single bidirectional stream as a Channel.
func (l *Listener) Accept(ctx context.Context) (Channel, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "accept")
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransportInit, err, "accept stream")
	}
	return &quicChannel{conn: conn, stream: stream}, nil
}

func (l *Listener) Close() error { return l.ql.Close() }

// selfSignedTLSConfig generates an ephemeral in-memory certificate so the
// receiver can terminate QUIC's mandatory TLS without an operator-managed
// PKI — appropriate for a private point-to-point transport between two
// hosts that already trust each other out of band.
func selfSignedTLSConfig() (*tls.Config, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour * 365),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"adastream"},
	}, nil
}

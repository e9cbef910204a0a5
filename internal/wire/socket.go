package wire

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
	"github.com/go-zeromq/zmq4/security/curve"
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
)

// Socket is the minimal transport surface every component in this service
// needs: send one message, receive one message, close. Concrete
// implementations wrap a real zmq4.Socket; tests use an in-memory fake
// (see wiretest in each package's _test.go) so cache/api/proxy/zap logic
// never has to stand up a real ZeroMQ context to be exercised.
type Socket interface {
	Send(Msg) error
	Recv() (Msg, error)
	Close() error
}

// zmqSocket adapts a zmq4.Socket to the Socket interface.
type zmqSocket struct{ s zmq4.Socket }

func (z zmqSocket) Send(m Msg) error {
	return z.s.Send(zmq4.NewMsgFrom(m.Frames...))
}

func (z zmqSocket) Recv() (Msg, error) {
	msg, err := z.s.Recv()
	if err != nil {
		return Msg{}, err
	}
	// msg.Properties carries whatever the CURVE mechanism decoded from the
	// peer's ZAP-approved credentials frame (its encoded name/type meta),
	// the same property-list format cert.EncodeMeta produces.
	return Msg{Frames: msg.Frames, Meta: msg.Properties}, nil
}

func (z zmqSocket) Close() error { return z.s.Close() }

// CurveServerSecurity builds the CURVE security mechanism for a socket
// that terminates incoming encrypted connections under self's keypair,
// authorizing peers via the ZAP handler rather than a fixed allow-list.
func CurveServerSecurity(self *cert.Certificate) (zmq4.Security, error) {
	if self.SecretKey == nil {
		return nil, errs.New(errs.ZmqEncode, "server certificate has no secret key")
	}
	return curve.NewServer(*self.SecretKey)
}

// CurveClientSecurity builds the CURVE security mechanism for a socket
// connecting out to a known server, authenticated under self's keypair.
func CurveClientSecurity(self *cert.Certificate, serverPublicKey [32]byte) (zmq4.Security, error) {
	if self.SecretKey == nil {
		return nil, errs.New(errs.ZmqEncode, "local certificate has no secret key")
	}
	return curve.NewClient(serverPublicKey, self.PublicKey, *self.SecretKey)
}

// Bind constructs a socket of the given zmq4 socket type, applies sec (nil
// for no encryption, used only for inproc endpoints), and binds endpoint.
func Bind(ctx context.Context, newSocket func(context.Context, ...zmq4.Option) zmq4.Socket, endpoint string, sec zmq4.Security) (Socket, error) {
	opts := []zmq4.Option{}
	if sec != nil {
		opts = append(opts, zmq4.WithSecurity(sec))
	}
	s := newSocket(ctx, opts...)
	if err := s.Listen(endpoint); err != nil {
		return nil, errs.Wrap(errs.Io, err, fmt.Sprintf("failed to bind %s", endpoint))
	}
	return zmqSocket{s: s}, nil
}

// Dial constructs a socket of the given zmq4 socket type, applies sec, and
// connects to endpoint.
func Dial(ctx context.Context, newSocket func(context.Context, ...zmq4.Option) zmq4.Socket, endpoint string, sec zmq4.Security) (Socket, error) {
	opts := []zmq4.Option{}
	if sec != nil {
		opts = append(opts, zmq4.WithSecurity(sec))
	}
	s := newSocket(ctx, opts...)
	if err := s.Dial(endpoint); err != nil {
		return nil, errs.Wrap(errs.Io, err, fmt.Sprintf("failed to connect to %s", endpoint))
	}
	return zmqSocket{s: s}, nil
}

// Subscribe sets the SUB/XSUB subscription option to topic ("" subscribes
// to everything).
func Subscribe(s zmq4.Socket, topic string) error {
	return s.SetOption(zmq4.OptionSubscribe, topic)
}

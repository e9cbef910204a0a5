// Package zap implements the ZAP Handler: a single-threaded worker that
// answers the transport library's ZeroMQ Authentication Protocol inquiries
// from a Certificate Cache. Every process accepting CURVE-secured
// connections runs one, including the auth server itself; a plain client
// process keeps its own cache fresh by subscribing to an auth server's
// update feed.
package zap

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/intecture/inauth/internal/cache"
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
)

const (
	zapVersion     = "1.0"
	curveMechanism = "CURVE"

	statusOK     = "200"
	statusDenied = "400"
	textOK       = "OK"
	textNoAccess = "No access"
)

// Handler answers ZAP requests and, when given a subscriber socket,
// applies update events to keep its backing cache fresh. A plain client
// process owns its cache exclusively and gets
// one from New via a nil c. The auth server itself also runs a Handler,
// since every CURVE-secured socket needs one answering in its own process,
// but passes its own authoritative Certificate Cache instead of a private one,
// and no subscriber, since that cache is already the source of truth.
type Handler struct {
	zapSocket  wire.Socket // REP bound to inproc://zeromq.zap.01
	subscriber wire.Socket // SUB connected to an auth server's update feed; nil when c is already authoritative
	cache      *cache.Cache
	log        hclog.Logger
}

// New builds a Handler around c (a fresh private cache if c is nil, or an
// existing shared cache such as the auth server's own). When allowSelf is
// true, self is cloned into the cache immediately so the process can
// authenticate connections from itself before the subscriber has caught up
// with the server.
func New(zapSocket, subscriber wire.Socket, c *cache.Cache, self *cert.Certificate, allowSelf bool, log hclog.Logger) *Handler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if c == nil {
		c = cache.New()
	}
	if allowSelf && self != nil {
		c.Insert(self.Clone())
	}
	return &Handler{zapSocket: zapSocket, subscriber: subscriber, cache: c, log: log}
}

// Cache exposes the handler's private cache for inspection in tests and by
// callers that want to observe what the handler currently trusts.
func (h *Handler) Cache() *cache.Cache { return h.cache }

// HandleZapRequest answers one 7-frame ZAP request:
// version, sequence, domain, peer address, peer identity, mechanism,
// peer public key. The reply is shaped as version, sequence, status-code,
// status-text, user-id (always empty), metadata frame (empty on denial).
func (h *Handler) HandleZapRequest(req wire.Msg) (wire.Msg, error) {
	if req.Len() != 7 {
		return wire.Msg{}, errs.New(errs.InvalidZapRequest, "ZAP request must carry exactly 7 frames")
	}
	version := req.String(0)
	sequence := req.Bytes(1)
	mechanism := req.String(5)
	pubkeyRaw := req.Bytes(6)

	if version != zapVersion {
		return wire.Msg{}, errs.New(errs.ZapVersion, "unsupported ZAP version "+version)
	}

	pubkeyText, err := cert.Z85Encode(pubkeyRaw)
	if err != nil || len(pubkeyText) != 40 {
		return wire.Msg{}, errs.New(errs.InvalidZapRequest, "ZAP request public key does not encode to 40 Z85 characters")
	}

	if mechanism == curveMechanism {
		if c, ok := h.cache.Get(pubkeyText); ok {
			meta, err := c.Meta()
			if err != nil {
				return wire.Msg{}, err
			}
			return wire.NewMsgBytes(
				[]byte(zapVersion), sequence, []byte(statusOK), []byte(textOK), []byte(""), meta,
			), nil
		}
	}

	return wire.NewMsgBytes(
		[]byte(zapVersion), sequence, []byte(statusDenied), []byte(textNoAccess), []byte(""), []byte(""),
	), nil
}

// HandleUpdateEvent applies one Update Event received on the subscriber
// feed to the handler's cache.
func (h *Handler) HandleUpdateEvent(msg wire.Msg) error {
	return h.cache.ApplyEvent(msg)
}

// Run drives the handler from live sockets until ctx is cancelled or
// shutdown is closed. Each blocking Recv gets its own goroutine rather
// than sharing one poller, since wire.Socket exposes no poll primitive.
func (h *Handler) Run(ctx context.Context, shutdown <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdown:
		}
		close(done)
		if h.zapSocket != nil {
			_ = h.zapSocket.Close()
		}
		if h.subscriber != nil {
			_ = h.subscriber.Close()
		}
	}()

	if h.zapSocket != nil {
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				req, err := h.zapSocket.Recv()
				if err != nil {
					if isDone(done) {
						return
					}
					h.log.Warn("zap recv failed", "error", err)
					continue
				}
				reply, err := h.HandleZapRequest(req)
				if err != nil {
					h.log.Debug("zap request rejected", "error", err)
					continue
				}
				if err := h.zapSocket.Send(reply); err != nil {
					h.log.Warn("zap reply failed", "error", err)
				}
			}
		}()
	}

	if h.subscriber != nil {
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				msg, err := h.subscriber.Recv()
				if err != nil {
					if isDone(done) {
						return
					}
					h.log.Warn("zap subscriber recv failed", "error", err)
					continue
				}
				if err := h.HandleUpdateEvent(msg); err != nil {
					h.log.Warn("zap subscriber event rejected", "error", err)
				}
			}
		}()
	}

	<-done
}

func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

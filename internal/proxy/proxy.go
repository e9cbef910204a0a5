// Package proxy bridges the internal publisher where the administrative
// API emits ADD/DEL events, the external XPUB that serves subscribers, and
// the external XSUB that re-publishes events received from peer auth
// servers.
package proxy

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/intecture/inauth/internal/cache"
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
)

const (
	subscribeEvent   byte = 1
	unsubscribeEvent byte = 0
)

// Proxy couples three sockets around a shared Certificate Cache:
//   - internal: XSUB bound at inproc://auth_publisher, the API's publisher
//     connects here as a PUB socket.
//   - external: XPUB (verbose) facing subscribers.
//   - peer: XSUB connected to other auth servers' external XPUB feeds.
type Proxy struct {
	internal wire.Socket
	external wire.Socket
	peer     wire.Socket
	cache    *cache.Cache
	log      hclog.Logger
}

// New builds a Proxy. Any of the three sockets may be nil in a
// configuration that does not use it (e.g. a single-server fleet with no
// peer re-publishing); the corresponding Handle* method is then a no-op.
func New(internal, external, peer wire.Socket, c *cache.Cache, log hclog.Logger) *Proxy {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Proxy{internal: internal, external: external, peer: peer, cache: c, log: log}
}

// HandleInternalEvent forwards one ADD/DEL event received from the internal
// publisher out to external subscribers unchanged.
func (p *Proxy) HandleInternalEvent(msg wire.Msg) error {
	if p.external == nil {
		return nil
	}
	return p.external.Send(msg)
}

// parseTopic decodes a subscription frame's topic bytes into a type filter.
// An empty topic means "all"; any other unrecognised token is the
// subscriber misbehaving.
func parseTopic(topic []byte) (*cert.Type, error) {
	switch string(topic) {
	case "":
		return nil, nil
	case "host":
		t := cert.Host
		return &t, nil
	case "user":
		t := cert.User
		return &t, nil
	default:
		return nil, errs.New(errs.InvalidCertMeta, "subscriber requested unrecognised topic "+string(topic))
	}
}

// HandleSubscription processes one subscription-frame message received on
// the external XPUB side. Frame 0's leading byte is the XPUB-verbose event
// code (1 = subscribe, 0 = unsubscribe) followed immediately by the topic
// bytes; any further frames belong to the subscriber's own message and are
// forwarded along with it.
//
// Only the subscribe code triggers a snapshot, sent back out on the
// external socket so it reaches the newly (or re-)subscribed peer. The raw
// subscription frame is always forwarded to the internal side afterward so
// the native XPUB/XSUB subscription bookkeeping stays correct.
func (p *Proxy) HandleSubscription(msg wire.Msg) error {
	frame0 := msg.Bytes(0)
	if len(frame0) == 0 {
		return errs.New(errs.InvalidCertMeta, "subscription frame is empty")
	}
	event, topic := frame0[0], frame0[1:]

	if event == subscribeEvent {
		typ, err := parseTopic(topic)
		if err != nil {
			return err
		}
		if p.external != nil && p.cache != nil {
			if err := p.cache.PublishSnapshot(p.external, typ); err != nil {
				return err
			}
		}
	}

	if p.internal == nil {
		return nil
	}
	return p.internal.Send(msg)
}

// HandlePeerEvent applies an Update Event received from a peer auth
// server's feed to the local cache, then forwards it to external
// subscribers so the mirroring is transparent to them.
func (p *Proxy) HandlePeerEvent(msg wire.Msg) error {
	if p.cache != nil {
		if err := p.cache.ApplyEvent(msg); err != nil {
			return err
		}
	}
	if p.external == nil {
		return nil
	}
	return p.external.Send(msg)
}

// Run drives the proxy from live sockets until ctx is cancelled: each of
// the three feeds is read on its own goroutine and dispatched to the
// matching Handle* method. Closing the sockets (on shutdown) unblocks any
// socket still parked in Recv.
func (p *Proxy) Run(ctx context.Context) {
	pump := func(sock wire.Socket, handle func(wire.Msg) error, name string) {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			msg, err := sock.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Warn("proxy recv failed", "socket", name, "error", err)
				continue
			}
			if err := handle(msg); err != nil {
				p.log.Warn("proxy dispatch failed", "socket", name, "error", err)
			}
		}
	}

	if p.internal != nil {
		go pump(p.internal, p.HandleInternalEvent, "internal")
	}
	if p.external != nil {
		go pump(p.external, p.HandleSubscription, "external")
	}
	if p.peer != nil {
		go pump(p.peer, p.HandlePeerEvent, "peer")
	}

	<-ctx.Done()
	if p.internal != nil {
		_ = p.internal.Close()
	}
	if p.external != nil {
		_ = p.external.Close()
	}
	if p.peer != nil {
		_ = p.peer.Close()
	}
}

// Package service implements the server's event loop: it owns the
// administrative API's request socket and the pub/sub proxy's sockets,
// and dispatches each as it becomes ready.
package service

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/intecture/inauth/internal/api"
	"github.com/intecture/inauth/internal/proxy"
	"github.com/intecture/inauth/internal/wire"
)

// Loop owns every server-side socket and drives them until Stop is called
// or its context is cancelled. All mutable server state (the cache, the
// store, the API dispatcher) is reached exclusively from the goroutines
// this loop starts: each socket's pump goroutine is the sole writer of its
// own reply path, and the cache's own mutex covers the remaining
// concurrent access from multiple pumps.
type Loop struct {
	reqSocket wire.Socket // ROUTER bound for the Administrative API
	api       *api.API
	proxy     *proxy.Proxy
	log       hclog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Loop around an already-bound request socket and the
// component instances it dispatches to.
func New(reqSocket wire.Socket, a *api.API, p *proxy.Proxy, log hclog.Logger) *Loop {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Loop{reqSocket: reqSocket, api: a, proxy: p, log: log}
}

// Start runs the loop on its own goroutine: the request socket's pump plus
// the proxy's own three pumps. It returns immediately; call Stop to signal
// shutdown and Wait to join.
func (l *Loop) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)

		reqDone := make(chan struct{})
		go func() {
			defer close(reqDone)
			l.pumpRequests(ctx)
		}()

		if l.proxy != nil {
			l.proxy.Run(ctx)
		}
		<-reqDone
	}()
}

func (l *Loop) pumpRequests(ctx context.Context) {
	if l.reqSocket == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = l.reqSocket.Close()
			return
		default:
		}
		req, err := l.reqSocket.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("api request recv failed", "error", err)
			continue
		}
		reply := l.api.Handle(req)
		if reply.Len() == 0 {
			// A request too short to carry a routing identity cannot be
			// answered; there is nowhere to route the reply.
			l.log.Warn("dropping unroutable request", "frames", req.Len())
			continue
		}
		if err := l.reqSocket.Send(reply); err != nil {
			l.log.Warn("api reply send failed", "error", err)
		}
	}
}

// Stop signals shutdown; it does not block.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

// Wait blocks until the loop's goroutines have exited.
func (l *Loop) Wait() {
	if l.done != nil {
		<-l.done
	}
}

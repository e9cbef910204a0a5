// Package api implements the administrative API: the request/reply
// endpoint exposing list, lookup, create, delete operations over the
// certificate store, authorising mutation by the peer's certificate type.
package api

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/intecture/inauth/internal/cache"
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/reqmeta"
	"github.com/intecture/inauth/internal/store"
	"github.com/intecture/inauth/internal/wire"
)

const (
	endpointList   = "cert::list"
	endpointLookup = "cert::lookup"
	endpointCreate = "cert::create"
	endpointDelete = "cert::delete"
)

// API dispatches administrative requests to the store and cache, and
// publishes an update event on success. It owns the publisher socket
// directly; there is no sharing across dispatch paths.
type API struct {
	store     store.Adaptor
	cache     *cache.Cache
	publisher wire.Socket
	log       hclog.Logger
}

// New builds an API dispatcher. publisher is a PUB socket connected to the
// proxy's internal inproc subscriber; the API connects, the proxy binds.
func New(st store.Adaptor, c *cache.Cache, publisher wire.Socket, log hclog.Logger) *API {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &API{store: st, cache: c, publisher: publisher, log: log}
}

// Handle dispatches one request of the form [routing-id, endpoint, args…]
// and returns the reply [routing-id, "Ok"|"Err", payload…]. It never
// returns an error itself: every failure is translated into an Err reply
// so that one bad request never terminates the service loop.
func (a *API) Handle(req wire.Msg) wire.Msg {
	if req.Len() < 2 {
		return wire.Msg{}
	}
	routingID := req.Bytes(0)
	endpoint := req.String(1)
	args := req.Tail(2)

	// correlationID ties this request's log lines together without
	// decoding the routing identity, which may be binary.
	correlationID := uuid.New().String()
	log := a.log.With("request_id", correlationID, "endpoint", endpoint)

	payload, err := a.dispatch(endpoint, args, req)
	if err != nil {
		log.Debug("request failed", "error", err)
		return wire.NewMsgBytes(routingID, []byte("Err"), []byte(errs.Description(err)))
	}
	log.Debug("request succeeded")

	frames := append([][]byte{routingID, []byte("Ok")}, payload...)
	return wire.NewMsgBytes(frames...)
}

func (a *API) dispatch(endpoint string, args [][]byte, req wire.Msg) ([][]byte, error) {
	switch endpoint {
	case endpointList:
		return a.list(args)
	case endpointLookup:
		return a.lookup(args)
	case endpointCreate:
		return a.create(args, req)
	case endpointDelete:
		return a.delete(args, req)
	default:
		return nil, errs.New(errs.InvalidEndpoint, "unknown endpoint "+endpoint)
	}
}

func parseType(token string) (cert.Type, error) {
	switch token {
	case "host":
		return cert.Host, nil
	case "user":
		return cert.User, nil
	default:
		return 0, errs.New(errs.InvalidCertMeta, "unrecognised certificate type "+token)
	}
}

// list returns the names of every certificate of the given type.
func (a *API) list(args [][]byte) ([][]byte, error) {
	if len(args) != 1 {
		return nil, errs.New(errs.InvalidArgsCount, "cert::list takes exactly one argument: type")
	}
	typ, err := parseType(string(args[0]))
	if err != nil {
		return nil, err
	}
	certs := a.cache.Snapshot(&typ)
	names := make([][]byte, len(certs))
	for i, c := range certs {
		names[i] = []byte(c.Name)
	}
	return names, nil
}

// lookup returns the public key of the named certificate.
func (a *API) lookup(args [][]byte) ([][]byte, error) {
	if len(args) != 1 {
		return nil, errs.New(errs.InvalidArgsCount, "cert::lookup takes exactly one argument: name")
	}
	name := string(args[0])
	c, ok := a.cache.GetByName(name)
	if !ok {
		return nil, errs.New(errs.InvalidCert, "Invalid certificate")
	}
	return [][]byte{[]byte(c.Z85PublicKey())}, nil
}

// create generates a new certificate, persists it, caches it, and
// publishes an ADD event. Only a "user" peer may invoke it.
func (a *API) create(args [][]byte, req wire.Msg) ([][]byte, error) {
	if len(args) != 2 {
		return nil, errs.New(errs.InvalidArgsCount, "cert::create takes exactly two arguments: type, name")
	}
	if err := a.requireUser(req); err != nil {
		return nil, err
	}
	typ, err := parseType(string(args[0]))
	if err != nil {
		return nil, err
	}
	name := string(args[1])

	c, err := cert.New(name, typ)
	if err != nil {
		return nil, err
	}
	if err := a.store.Create(c); err != nil {
		return nil, err
	}
	a.cache.Insert(c)

	meta, err := c.Meta()
	if err != nil {
		return nil, err
	}
	if a.publisher != nil {
		if err := a.publisher.Send(wire.NewMsgBytes([]byte(typ.String()), []byte("ADD"), []byte(c.Z85PublicKey()), meta)); err != nil {
			a.log.Warn("failed to publish ADD event", "name", name, "error", err)
		}
	}

	return [][]byte{[]byte(c.Z85PublicKey()), []byte(c.Z85SecretKey()), meta}, nil
}

// delete removes the named certificate from the store and cache, and
// publishes a DEL event. Only a "user" peer may invoke it.
func (a *API) delete(args [][]byte, req wire.Msg) ([][]byte, error) {
	if len(args) != 1 {
		return nil, errs.New(errs.InvalidArgsCount, "cert::delete takes exactly one argument: name")
	}
	if err := a.requireUser(req); err != nil {
		return nil, err
	}
	name := string(args[0])

	c, ok := a.cache.GetByName(name)
	if !ok {
		return nil, errs.New(errs.InvalidCert, "Invalid certificate")
	}
	if err := a.store.DeleteByName(name); err != nil {
		return nil, errs.Wrap(errs.InvalidCert, err, "Invalid certificate")
	}
	a.cache.Remove(c.Z85PublicKey())

	if a.publisher != nil {
		if err := a.publisher.Send(wire.NewMsgBytes([]byte(c.Type.String()), []byte("DEL"), []byte(c.Z85PublicKey()))); err != nil {
			a.log.Warn("failed to publish DEL event", "name", name, "error", err)
		}
	}

	return [][]byte{}, nil
}

func (a *API) requireUser(req wire.Msg) error {
	peer, err := reqmeta.Extract(req)
	if err != nil {
		return err
	}
	if peer.Type != cert.User {
		return errs.New(errs.Forbidden, "Access to this endpoint is forbidden")
	}
	return nil
}

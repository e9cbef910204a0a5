// Package reqmeta extracts the authenticated peer's name and type from the
// metadata the transport's CURVE machinery attaches to an incoming message
// frame. The metadata is the
// same property-list the peer's own certificate encodes (cert.EncodeMeta),
// decoded by the transport out of the ZAP-approved credentials frame and
// handed back on every subsequent message from that connection.
package reqmeta

import (
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
)

const (
	propName = "Name"
	propType = "Type"
)

// Peer is the authenticated identity of the sender of a request.
type Peer struct {
	Name string
	Type cert.Type
}

// Extract reads the Name/Type properties off msg's connection metadata.
// It fails with InvalidCert if either property is absent or the type token
// is unrecognised. An unauthenticated or misconfigured connection should
// never reach the Administrative API's dispatcher.
func Extract(msg wire.Msg) (Peer, error) {
	if msg.Meta == nil {
		return Peer{}, errs.New(errs.InvalidCert, "request carries no authenticated peer metadata")
	}
	name, ok := msg.Meta[propName]
	if !ok || name == "" {
		return Peer{}, errs.New(errs.InvalidCert, "request metadata missing peer name")
	}
	typStr, ok := msg.Meta[propType]
	if !ok {
		return Peer{}, errs.New(errs.InvalidCert, "request metadata missing peer type")
	}

	switch typStr {
	case "host":
		return Peer{Name: name, Type: cert.Host}, nil
	case "user":
		return Peer{Name: name, Type: cert.User}, nil
	default:
		return Peer{}, errs.New(errs.InvalidCert, "request metadata carries unrecognised peer type "+typStr)
	}
}

// Package cache implements the certificate cache: an in-memory index of
// every known certificate by public key, with reverse lookup by name and
// type-filtered snapshot/replay over a socket.
package cache

import (
	"sync"

	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
)

// Cache maps a certificate's Z85 public-key text to the certificate.
// Reverse lookup by name scans linearly; fleets are small.
type Cache struct {
	mu    sync.RWMutex
	byKey map[string]*cert.Certificate
}

func New() *Cache {
	return &Cache{byKey: map[string]*cert.Certificate{}}
}

// Get returns the certificate for the given Z85 public-key text.
func (c *Cache) Get(pubkeyText string) (*cert.Certificate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byKey[pubkeyText]
	return v, ok
}

// GetByName scans the cache linearly for a certificate with the given name.
func (c *Cache) GetByName(name string) (*cert.Certificate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.byKey {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Insert adds or overwrites the cache entry for c, keyed by its public key.
func (c *Cache) Insert(v *cert.Certificate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[v.Z85PublicKey()] = v
}

// Remove deletes the cache entry for the given Z85 public-key text.
func (c *Cache) Remove(pubkeyText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, pubkeyText)
}

// Snapshot returns every certificate matching typ, or every certificate in
// the cache when typ is nil.
func (c *Cache) Snapshot(typ *cert.Type) []*cert.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*cert.Certificate
	for _, v := range c.byKey {
		if typ == nil || v.Type == *typ {
			out = append(out, v)
		}
	}
	return out
}

// topicFor renders typ as the Update Event topic text, "" meaning "all".
func topicFor(typ *cert.Type) string {
	if typ == nil {
		return ""
	}
	return typ.String()
}

// PublishSnapshot writes a single multi-frame Update Event to sink shaped
// as [topic, "ADD", (pubkey, meta)+], filtered by typ. It emits nothing
// when the filter produces zero certificates.
func (c *Cache) PublishSnapshot(sink wire.Socket, typ *cert.Type) error {
	certs := c.Snapshot(typ)
	if len(certs) == 0 {
		return nil
	}

	frames := [][]byte{[]byte(topicFor(typ)), []byte("ADD")}
	for _, v := range certs {
		meta, err := v.Meta()
		if err != nil {
			return err
		}
		frames = append(frames, []byte(v.Z85PublicKey()), meta)
	}
	return sink.Send(wire.NewMsgBytes(frames...))
}

// ApplyEvent mutates the cache from a received Update Event. ADD
// adds/overwrites each (pubkey, meta) pair carried; DEL removes the single
// public key carried. It fails with InvalidCertFeed on any frame it cannot
// interpret.
func (c *Cache) ApplyEvent(msg wire.Msg) error {
	if msg.Len() < 2 {
		return errs.New(errs.InvalidCertFeed, "update event must carry at least a topic and an action")
	}
	action := msg.String(1)

	switch action {
	case "ADD":
		rest := msg.Tail(2)
		if len(rest)%2 != 0 || len(rest) == 0 {
			return errs.New(errs.InvalidCertFeed, "ADD event must carry one or more (pubkey, meta) pairs")
		}
		for i := 0; i < len(rest); i += 2 {
			v, err := cert.FromEncoded(string(rest[i]), rest[i+1])
			if err != nil {
				return errs.Wrap(errs.InvalidCertFeed, err, "malformed ADD event entry")
			}
			c.Insert(v)
		}
		return nil

	case "DEL":
		if msg.Len() != 3 {
			return errs.New(errs.InvalidCertFeed, "DEL event must carry exactly one public key frame")
		}
		c.Remove(msg.String(2))
		return nil

	default:
		return errs.New(errs.InvalidCertFeed, "unrecognised update event action "+action)
	}
}

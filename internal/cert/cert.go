// Package cert implements the Certificate type: a named CURVE keypair plus
// a type tag, the unit of identity for every host and user in the fleet.
package cert

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/intecture/inauth/internal/errs"
	"golang.org/x/crypto/curve25519"
)

// Type is the certificate's type tag. An unused Runtime variant is
// reserved by the wire format but rejected at decode time until a purpose
// is defined for it.
type Type int

const (
	Host Type = iota
	User
	Runtime
)

func (t Type) encode() (string, error) {
	switch t {
	case Host:
		return "host", nil
	case User:
		return "user", nil
	case Runtime:
		return "", errs.New(errs.InvalidCertMeta, "certificate type \"runtime\" is reserved and not encodable")
	default:
		return "", errs.New(errs.InvalidCertMeta, fmt.Sprintf("unrecognised certificate type %d", t))
	}
}

func (t Type) String() string {
	s, err := t.encode()
	if err != nil {
		return "unknown"
	}
	return s
}

// Certificate is a named CURVE keypair. SecretKey is nil for every
// certificate except the one originating on the local node: it is never
// transmitted on the update feed.
type Certificate struct {
	Name      string
	Type      Type
	PublicKey [32]byte
	SecretKey *[32]byte
}

// New generates a fresh CURVE keypair for (name, typ). It fails only on
// underlying crypto failure.
func New(name string, typ Type) (*Certificate, error) {
	if name == "" {
		return nil, errs.New(errs.InvalidCert, "certificate name must not be empty")
	}
	if _, err := typ.encode(); err != nil {
		return nil, err
	}

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, errs.Wrap(errs.Io, err, "failed to generate CURVE secret key")
	}
	// Clamp per the curve25519 scalar convention used by CurveZMQ keypairs.
	secret[0] &= 248
	secret[31] &= 127
	secret[31] |= 64

	public, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "failed to derive CURVE public key")
	}

	c := &Certificate{Name: name, Type: typ, SecretKey: &secret}
	copy(c.PublicKey[:], public)
	return c, nil
}

// FromEncoded reconstructs a remote, public-only certificate from its Z85
// public-key text and encoded meta bytes. It fails with InvalidCert if meta
// is missing name or type, or the type is unrecognised.
func FromEncoded(publicKeyText string, meta []byte) (*Certificate, error) {
	raw, err := Z85Decode(publicKeyText)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidCert, err, "malformed public key")
	}
	if len(raw) != 32 {
		return nil, errs.New(errs.InvalidCert, fmt.Sprintf("public key decodes to %d bytes, want 32", len(raw)))
	}

	name, typ, err := DecodeMeta(meta)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidCert, err, "malformed certificate metadata")
	}

	c := &Certificate{Name: name, Type: typ}
	copy(c.PublicKey[:], raw)
	return c, nil
}

// Meta returns the certificate's encoded (name, type) metadata, the exact
// bytes attached to each subscriber update.
func (c *Certificate) Meta() ([]byte, error) {
	return EncodeMeta(c.Name, c.Type)
}

// Z85PublicKey returns the 40-character Z85 text form of the public key.
func (c *Certificate) Z85PublicKey() string {
	s, _ := Z85Encode(c.PublicKey[:])
	return s
}

// Z85SecretKey returns the 40-character Z85 text form of the secret key,
// or "" if this certificate has no secret half.
func (c *Certificate) Z85SecretKey() string {
	if c.SecretKey == nil {
		return ""
	}
	s, _ := Z85Encode(c.SecretKey[:])
	return s
}

// Clone deep-copies the certificate, including its secret key if present.
// Used by the ZAP handler's self-trust seeding so the owning handle can
// keep using the original.
func (c *Certificate) Clone() *Certificate {
	clone := &Certificate{Name: c.Name, Type: c.Type, PublicKey: c.PublicKey}
	if c.SecretKey != nil {
		secret := *c.SecretKey
		clone.SecretKey = &secret
	}
	return clone
}

// fileHeader and section markers follow the CZMQ zcert ZPL file format:
// a commented banner, a "metadata" section carrying (name, type), and a
// "curve" section carrying the key material. SaveSecret additionally
// writes the secret-key line; SavePublic never does.
const fileHeader = "#   ZeroMQ CURVE Certificate\n#   Exchange securely, or bundle in code\n\n"

// SavePublic writes the library's public-certificate file format to path:
// metadata plus the public key only.
func (c *Certificate) SavePublic(path string) error {
	return c.save(path, false)
}

// SaveSecret writes the library's secret-certificate file format to path:
// metadata plus both halves of the keypair.
func (c *Certificate) SaveSecret(path string) error {
	if c.SecretKey == nil {
		return errs.New(errs.InvalidCert, "certificate has no secret key to save")
	}
	return c.save(path, true)
}

func (c *Certificate) save(path string, withSecret bool) error {
	typ, err := c.Type.encode()
	if err != nil {
		return err
	}

	body := fileHeader
	body += "metadata\n"
	body += fmt.Sprintf("    name = %q\n", c.Name)
	body += fmt.Sprintf("    type = %q\n", typ)
	body += "curve\n"
	body += fmt.Sprintf("    public-key = %q\n", c.Z85PublicKey())
	if withSecret {
		body += fmt.Sprintf("    secret-key = %q\n", c.Z85SecretKey())
	}

	mode := os.FileMode(0644)
	if withSecret {
		mode = 0600
	}
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		return errs.Wrap(errs.Io, err, fmt.Sprintf("failed to write certificate file %s", path))
	}
	return nil
}

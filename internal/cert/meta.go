package cert

import (
	"encoding/binary"
	"fmt"

	"github.com/intecture/inauth/internal/errs"
)

// Property names carried in a certificate's encoded metadata. These match
// the property names the ZAP handler and cache reconstruct a certificate
// from on the other end of the wire.
const (
	metaName = "Name"
	metaType = "Type"
)

// EncodeMeta serializes (name, typ) into the transport library's native
// metadata property-list wire format: a sequence of
// (1-byte name length, name bytes, 4-byte big-endian value length, value
// bytes) records, one per property. This is the exact byte sequence
// attached to every subscriber update.
func EncodeMeta(name string, typ Type) ([]byte, error) {
	if name == "" {
		return nil, errs.New(errs.InvalidCertMeta, "certificate name must not be empty")
	}
	typStr, err := typ.encode()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 32)
	buf = appendProperty(buf, metaName, []byte(name))
	buf = appendProperty(buf, metaType, []byte(typStr))
	return buf, nil
}

func appendProperty(buf []byte, name string, value []byte) []byte {
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(value)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, value...)
	return buf
}

// DecodeMeta parses the property-list format written by EncodeMeta and
// returns the (name, type) pair. It fails with InvalidCertMeta if either
// property is missing, truncated, or the type token is unrecognised.
func DecodeMeta(meta []byte) (name string, typ Type, err error) {
	props := map[string]string{}

	for len(meta) > 0 {
		nameLen := int(meta[0])
		meta = meta[1:]
		if len(meta) < nameLen+4 {
			return "", 0, errs.New(errs.InvalidCertMeta, "truncated metadata property")
		}
		propName := string(meta[:nameLen])
		meta = meta[nameLen:]
		valueLen := binary.BigEndian.Uint32(meta[:4])
		meta = meta[4:]
		if uint32(len(meta)) < valueLen {
			return "", 0, errs.New(errs.InvalidCertMeta, "truncated metadata value")
		}
		props[propName] = string(meta[:valueLen])
		meta = meta[valueLen:]
	}

	name, ok := props[metaName]
	if !ok || name == "" {
		return "", 0, errs.New(errs.InvalidCertMeta, "metadata missing name")
	}
	typStr, ok := props[metaType]
	if !ok {
		return "", 0, errs.New(errs.InvalidCertMeta, "metadata missing type")
	}
	typ, err = decodeType(typStr)
	if err != nil {
		return "", 0, err
	}
	return name, typ, nil
}

func decodeType(s string) (Type, error) {
	switch s {
	case "host":
		return Host, nil
	case "user":
		return User, nil
	case "runtime":
		// Reserved but not yet meaningful; rejected until a purpose exists.
		return 0, errs.New(errs.InvalidCertMeta, "certificate type \"runtime\" is reserved and not decodable")
	default:
		return 0, errs.New(errs.InvalidCertMeta, fmt.Sprintf("unrecognised certificate type %q", s))
	}
}

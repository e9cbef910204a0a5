package cert

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/intecture/inauth/internal/errs"
)

// Load reads a certificate file in the ZPL format written by save/
// save_secret: a "metadata" section with name/type and a "curve" section
// with public-key and (optionally) secret-key. It reconstructs whichever
// halves of the keypair are present.
func Load(path string) (*Certificate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidCert, err, fmt.Sprintf("failed to open certificate file %s", path))
	}
	defer f.Close()

	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.Io, err, fmt.Sprintf("failed to read certificate file %s", path))
	}

	name, ok := fields["name"]
	if !ok || name == "" {
		return nil, errs.New(errs.InvalidCert, fmt.Sprintf("%s: missing metadata name", path))
	}
	typStr, ok := fields["type"]
	if !ok {
		return nil, errs.New(errs.InvalidCert, fmt.Sprintf("%s: missing metadata type", path))
	}
	typ, err := decodeType(typStr)
	if err != nil {
		return nil, err
	}
	pubText, ok := fields["public-key"]
	if !ok {
		return nil, errs.New(errs.InvalidCert, fmt.Sprintf("%s: missing public-key", path))
	}
	pub, err := Z85Decode(pubText)
	if err != nil || len(pub) != 32 {
		return nil, errs.New(errs.InvalidCert, fmt.Sprintf("%s: malformed public-key", path))
	}

	c := &Certificate{Name: name, Type: typ}
	copy(c.PublicKey[:], pub)

	if secretText, ok := fields["secret-key"]; ok && secretText != "" {
		secret, err := Z85Decode(secretText)
		if err != nil || len(secret) != 32 {
			return nil, errs.New(errs.InvalidCert, fmt.Sprintf("%s: malformed secret-key", path))
		}
		var s [32]byte
		copy(s[:], secret)
		c.SecretKey = &s
	}

	return c, nil
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/retry"
)

// Disk is the default storage backend: one file per certificate, named
// "<name>.crt", inside a single directory.
type Disk struct {
	dir string
	log hclog.Logger

	mu    sync.Mutex
	index map[string]string // name -> Z85 public key text
}

// NewDisk constructs a Disk backend rooted at dir. It rejects dir if it is
// not a directory, and eagerly builds the reverse name index from whatever
// certificates are already there.
func NewDisk(dir string, log hclog.Logger) (*Disk, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidCertPath, err, fmt.Sprintf("certificate path %s is not accessible", dir))
	}
	if !info.IsDir() {
		return nil, errs.New(errs.InvalidCertPath, fmt.Sprintf("certificate path %s is not a directory", dir))
	}

	d := &Disk{dir: dir, log: log, index: map[string]string{}}
	if _, err := d.Dump(); err != nil {
		// Dump already logs individual failures; a dirty directory at
		// startup is not itself fatal.
		log.Warn("certificate store had unreadable entries during startup scan", "error", err)
	}
	return d, nil
}

func (d *Disk) path(name string) string {
	return filepath.Join(d.dir, name+".crt")
}

// Create persists c as a public-only certificate file (the disk backend
// never retains a secret key for anything but the server's own identity,
// which is written directly via cert.SaveSecret during bootstrap, bypassing
// Create entirely).
func (d *Disk) Create(c *cert.Certificate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.index[c.Name]; exists {
		return errs.New(errs.CertNameCollision, fmt.Sprintf("a certificate named %q already exists", c.Name))
	}
	path := d.path(c.Name)
	if _, err := os.Stat(path); err == nil {
		return errs.New(errs.CertNameCollision, fmt.Sprintf("a certificate named %q already exists", c.Name))
	}

	if err := c.SavePublic(path); err != nil {
		return err
	}
	d.index[c.Name] = c.Z85PublicKey()
	return nil
}

// ReadByName loads the named certificate from disk.
func (d *Disk) ReadByName(name string) (*cert.Certificate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := cert.Load(d.path(name))
	if err != nil {
		return nil, err
	}
	d.index[name] = c.Z85PublicKey()
	return c, nil
}

// DeleteByName removes the named certificate's file. A missing file is
// reported as an I/O error per the Adaptor contract.
func (d *Disk) DeleteByName(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path(name)); err != nil {
		return errs.Wrap(errs.Io, err, fmt.Sprintf("failed to delete certificate %q", name))
	}
	delete(d.index, name)
	return nil
}

// Dump walks the certificate directory, loading every "*.crt" file. Files
// with a different extension are ignored. A file that disappears or fails
// to parse mid-scan is skipped and logged rather than aborting the whole
// scan: the server should still serve the certificates it can read.
func (d *Disk) Dump() ([]*cert.Certificate, error) {
	var entries []os.DirEntry
	listErr := retry.WithBackoff(context.Background(), d.log, retry.DefaultConfig(), func() error {
		var err error
		entries, err = os.ReadDir(d.dir)
		return err
	})
	if listErr != nil {
		return nil, errs.Wrap(errs.Io, listErr, fmt.Sprintf("failed to list certificate directory %s", d.dir))
	}

	var (
		certs  []*cert.Certificate
		issues *multierror.Error
	)

	freshIndex := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".crt") {
			continue
		}
		path := filepath.Join(d.dir, entry.Name())
		c, loadErr := cert.Load(path)
		if loadErr != nil {
			issues = multierror.Append(issues, loadErr)
			d.log.Warn("skipping unreadable certificate file", "path", path, "error", loadErr)
			continue
		}
		certs = append(certs, c)
		freshIndex[c.Name] = c.Z85PublicKey()
	}

	d.mu.Lock()
	d.index = freshIndex
	d.mu.Unlock()

	if issues != nil {
		return certs, issues.ErrorOrNil()
	}
	return certs, nil
}

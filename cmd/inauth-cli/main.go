// Command inauth-cli manages certificates against a local configuration
// directory without going through the administrative API, the same way
// the server's own bootstrap creates its certificate.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:     "inauth-cli",
		Short:   "manage fleet authentication certificates",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", "", "configuration directory")

	root.AddCommand(newUserCmd(&configDir))
	return root
}

func newUserCmd(configDir *string) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "manage user certificates",
	}
	user.AddCommand(newUserAddCmd(configDir))
	return user
}

func newUserAddCmd(configDir *string) *cobra.Command {
	var silent bool

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "create a new user certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(*configDir, args[0], silent, cmd.OutOrStdout(), "")
		},
	}
	add.Flags().BoolVarP(&silent, "silent", "s", false, "suppress the generated key material on stdout")
	return add
}

// runUserAdd implements `user add`: it always saves the new user's public
// certificate into cfg.CertPath, where the auth server's own store scan
// will find it, and either saves the secret half to <username>.crt in
// workDir (silent mode) or prints it to out wrapped in the COPY-ABOVE/
// BELOW marker block. An empty workDir means the current working
// directory. Extracted from the cobra RunE closure so it is testable
// without exiting the process.
func runUserAdd(configDir, name string, silent bool, out io.Writer, workDir string) error {
	dir, err := config.Locate(configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	c, err := cert.New(name, cert.User)
	if err != nil {
		return err
	}
	publicPath := filepath.Join(cfg.CertPath, name+".crt")
	if _, statErr := os.Stat(publicPath); statErr == nil {
		return fmt.Errorf("a certificate named %q already exists at %s", name, publicPath)
	}
	if err := c.SavePublic(publicPath); err != nil {
		return err
	}

	if silent {
		secretPath := filepath.Join(workDir, name+".crt")
		if err := c.SaveSecret(secretPath); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, `**********
* PLEASE NOTE: You must restart the Auth server before this certificate will become valid!
**********

Please distribute this certificate securely.

------------------------COPY BELOW THIS LINE-------------------------
metadata
    name = %q
    type = "user"
curve
    public-key = %q
    secret-key = %q
------------------------COPY ABOVE THIS LINE-------------------------
`, name, c.Z85PublicKey(), c.Z85SecretKey())
	}
	return nil
}

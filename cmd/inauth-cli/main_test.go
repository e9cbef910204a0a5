package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/intecture/inauth/internal/cert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAuthJSON(t *testing.T, configDir, certPath string) {
	t.Helper()
	body := `{"server_cert": "` + filepath.Join(configDir, "server.crt") + `", "cert_path": "` + certPath + `", "api_port": 7070, "update_port": 7071}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "auth.json"), []byte(body), 0644))
}

func TestRunUserAddWritesPublicCertToCertPath(t *testing.T) {
	configDir := t.TempDir()
	certPath := t.TempDir()
	workDir := t.TempDir()
	writeAuthJSON(t, configDir, certPath)

	var out bytes.Buffer
	err := runUserAdd(configDir, "luke", false, &out, workDir)
	require.NoError(t, err)

	publicPath := filepath.Join(certPath, "luke.crt")
	loaded, err := cert.Load(publicPath)
	require.NoError(t, err)
	assert.Equal(t, "luke", loaded.Name)
	assert.Equal(t, cert.User, loaded.Type)
	assert.Nil(t, loaded.SecretKey, "cert_path certificate must never carry a secret key")

	// non-silent mode never writes a secret file anywhere.
	_, statErr := os.Stat(filepath.Join(workDir, "luke.crt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunUserAddSilentWritesSecretToWorkDir(t *testing.T) {
	configDir := t.TempDir()
	certPath := t.TempDir()
	workDir := t.TempDir()
	writeAuthJSON(t, configDir, certPath)

	var out bytes.Buffer
	err := runUserAdd(configDir, "luke", true, &out, workDir)
	require.NoError(t, err)

	assert.Empty(t, out.String(), "silent mode must not print key material")

	publicPath := filepath.Join(certPath, "luke.crt")
	public, err := cert.Load(publicPath)
	require.NoError(t, err)
	assert.Nil(t, public.SecretKey)

	secretPath := filepath.Join(workDir, "luke.crt")
	secret, err := cert.Load(secretPath)
	require.NoError(t, err)
	require.NotNil(t, secret.SecretKey)
	assert.Equal(t, public.Z85PublicKey(), secret.Z85PublicKey())
}

func TestRunUserAddNonSilentPrintsMarkerBlock(t *testing.T) {
	configDir := t.TempDir()
	certPath := t.TempDir()
	writeAuthJSON(t, configDir, certPath)

	var out bytes.Buffer
	err := runUserAdd(configDir, "leia", false, &out, t.TempDir())
	require.NoError(t, err)

	printed := out.String()
	assert.Contains(t, printed, "------------------------COPY BELOW THIS LINE-------------------------")
	assert.Contains(t, printed, "------------------------COPY ABOVE THIS LINE-------------------------")
	assert.Contains(t, printed, `name = "leia"`)
	assert.Contains(t, printed, `type = "user"`)

	public, err := cert.Load(filepath.Join(certPath, "leia.crt"))
	require.NoError(t, err)
	assert.Contains(t, printed, public.Z85PublicKey())
}

func TestRunUserAddCollisionFails(t *testing.T) {
	configDir := t.TempDir()
	certPath := t.TempDir()
	writeAuthJSON(t, configDir, certPath)

	var out bytes.Buffer
	require.NoError(t, runUserAdd(configDir, "han", false, &out, t.TempDir()))

	out.Reset()
	err := runUserAdd(configDir, "han", false, &out, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

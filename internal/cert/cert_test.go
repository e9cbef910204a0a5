package cert

import (
	"path/filepath"
	"testing"

	"github.com/intecture/inauth/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZ85RoundTrip(t *testing.T) {
	c, err := New("luke", User)
	require.NoError(t, err)

	text := c.Z85PublicKey()
	assert.Len(t, text, 40)

	raw, err := Z85Decode(text)
	require.NoError(t, err)
	assert.Equal(t, c.PublicKey[:], raw)
}

func TestNewRejectsRuntimeType(t *testing.T) {
	_, err := New("r2d2", Runtime)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidCertMeta, errs.KindOf(err))
}

func TestFromEncodedRoundTrip(t *testing.T) {
	original, err := New("c3po", Host)
	require.NoError(t, err)

	meta, err := original.Meta()
	require.NoError(t, err)

	remote, err := FromEncoded(original.Z85PublicKey(), meta)
	require.NoError(t, err)

	assert.Equal(t, original.Name, remote.Name)
	assert.Equal(t, original.Type, remote.Type)
	assert.Equal(t, original.PublicKey, remote.PublicKey)
	assert.Nil(t, remote.SecretKey)
}

func TestFromEncodedRejectsRuntimeToken(t *testing.T) {
	original, err := New("han", Host)
	require.NoError(t, err)

	_, err = FromEncoded(original.Z85PublicKey(), mustMeta(t, "han", "runtime"))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidCertMeta, errs.KindOf(err))
}

func TestFromEncodedRejectsUnknownType(t *testing.T) {
	original, err := New("leia", User)
	require.NoError(t, err)

	_, err = FromEncoded(original.Z85PublicKey(), mustMeta(t, "leia", "droid"))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidCertMeta, errs.KindOf(err))
}

func TestCloneIsIndependent(t *testing.T) {
	original, err := New("r2d2", Host)
	require.NoError(t, err)

	clone := original.Clone()
	clone.Name = "bb8"
	*clone.SecretKey = [32]byte{}

	assert.Equal(t, "r2d2", original.Name)
	assert.NotEqual(t, [32]byte{}, *original.SecretKey)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original, err := New("luke", User)
	require.NoError(t, err)

	secretPath := filepath.Join(dir, "luke_secret.crt")
	require.NoError(t, original.SaveSecret(secretPath))

	loaded, err := Load(secretPath)
	require.NoError(t, err)
	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, original.Type, loaded.Type)
	assert.Equal(t, original.PublicKey, loaded.PublicKey)
	require.NotNil(t, loaded.SecretKey)
	assert.Equal(t, *original.SecretKey, *loaded.SecretKey)

	publicPath := filepath.Join(dir, "luke_public.crt")
	require.NoError(t, original.SavePublic(publicPath))
	loadedPublic, err := Load(publicPath)
	require.NoError(t, err)
	assert.Nil(t, loadedPublic.SecretKey)
}

func mustMeta(t *testing.T, name, typ string) []byte {
	t.Helper()
	buf := appendProperty(nil, metaName, []byte(name))
	buf = appendProperty(buf, metaType, []byte(typ))
	return buf
}

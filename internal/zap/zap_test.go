package zap

import (
	"testing"

	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zapRequest(sequence []byte, mechanism string, pubkey []byte) wire.Msg {
	return wire.NewMsgBytes(
		[]byte("1.0"), sequence, []byte("domain"), []byte("127.0.0.1"), []byte("identity"),
		[]byte(mechanism), pubkey,
	)
}

// A process whose own pubkey is P answers a ZAP request for P with 200/OK
// before any subscribe event arrives.
func TestSelfTrustSeedAnswersOwnPubkeyImmediately(t *testing.T) {
	self, err := cert.New("me", cert.Host)
	require.NoError(t, err)

	h := New(nil, nil, nil, self, true, nil)

	reply, err := h.HandleZapRequest(zapRequest([]byte("1"), "CURVE", self.PublicKey[:]))
	require.NoError(t, err)
	assert.Equal(t, "200", reply.String(2))
	assert.Equal(t, "OK", reply.String(3))
}

func TestUnknownPubkeyIsDenied(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	stranger, err := cert.New("stranger", cert.Host)
	require.NoError(t, err)

	reply, err := h.HandleZapRequest(zapRequest([]byte("1"), "CURVE", stranger.PublicKey[:]))
	require.NoError(t, err)
	assert.Equal(t, "400", reply.String(2))
	assert.Equal(t, "No access", reply.String(3))
	assert.Empty(t, reply.String(5))
}

func TestKnownPubkeyFromUpdateFeedIsAllowed(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	known, err := cert.New("r2d2", cert.Host)
	require.NoError(t, err)

	meta, err := known.Meta()
	require.NoError(t, err)
	addEvent := wire.NewMsgBytes([]byte("host"), []byte("ADD"), []byte(known.Z85PublicKey()), meta)
	require.NoError(t, h.HandleUpdateEvent(addEvent))

	reply, err := h.HandleZapRequest(zapRequest([]byte("1"), "CURVE", known.PublicKey[:]))
	require.NoError(t, err)
	assert.Equal(t, "200", reply.String(2))
	assert.Equal(t, meta, reply.Bytes(5))
}

// A non-"1.0" version fails with ZapVersion.
func TestWrongVersionFails(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	req := zapRequest([]byte("1"), "CURVE", make([]byte, 32))
	req.Frames[0] = []byte("2.0")

	_, err := h.HandleZapRequest(req)
	require.Error(t, err)
	assert.Equal(t, errs.ZapVersion, errs.KindOf(err))
}

// A public key that does not Z85-encode to exactly 40 characters fails
// with InvalidZapRequest.
func TestMalformedPublicKeyLengthFails(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	req := zapRequest([]byte("1"), "CURVE", make([]byte, 8))

	_, err := h.HandleZapRequest(req)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidZapRequest, errs.KindOf(err))
}

func TestWrongFrameCountFails(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	_, err := h.HandleZapRequest(wire.NewMsgBytes([]byte("1.0")))
	require.Error(t, err)
	assert.Equal(t, errs.InvalidZapRequest, errs.KindOf(err))
}

func TestNonCurveMechanismIsDenied(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	known, _ := cert.New("r2d2", cert.Host)
	meta, _ := known.Meta()
	_ = h.HandleUpdateEvent(wire.NewMsgBytes([]byte("host"), []byte("ADD"), []byte(known.Z85PublicKey()), meta))

	reply, err := h.HandleZapRequest(zapRequest([]byte("1"), "PLAIN", known.PublicKey[:]))
	require.NoError(t, err)
	assert.Equal(t, "400", reply.String(2))
}

func TestDeleteEventRevokesAccess(t *testing.T) {
	h := New(nil, nil, nil, nil, false, nil)
	known, _ := cert.New("r2d2", cert.Host)
	meta, _ := known.Meta()
	require.NoError(t, h.HandleUpdateEvent(wire.NewMsgBytes([]byte("host"), []byte("ADD"), []byte(known.Z85PublicKey()), meta)))
	require.NoError(t, h.HandleUpdateEvent(wire.NewMsgBytes([]byte("host"), []byte("DEL"), []byte(known.Z85PublicKey()))))

	reply, err := h.HandleZapRequest(zapRequest([]byte("1"), "CURVE", known.PublicKey[:]))
	require.NoError(t, err)
	assert.Equal(t, "400", reply.String(2))
}

func TestSelfTrustSeedDoesNotMutateOriginalCertificate(t *testing.T) {
	self, err := cert.New("me", cert.Host)
	require.NoError(t, err)

	h := New(nil, nil, nil, self, true, nil)
	seeded, ok := h.Cache().Get(self.Z85PublicKey())
	require.True(t, ok)
	assert.NotSame(t, self, seeded)
	assert.Equal(t, self.SecretKey, seeded.SecretKey)
}

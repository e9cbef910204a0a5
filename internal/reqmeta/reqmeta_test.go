package reqmeta

import (
	"testing"

	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
	"github.com/intecture/inauth/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUserPeer(t *testing.T) {
	msg := wire.Msg{Meta: map[string]string{"Name": "luke", "Type": "user"}}
	p, err := Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, "luke", p.Name)
	assert.Equal(t, cert.User, p.Type)
}

func TestExtractMissingMetaFails(t *testing.T) {
	_, err := Extract(wire.Msg{})
	require.Error(t, err)
	assert.Equal(t, errs.InvalidCert, errs.KindOf(err))
}

func TestExtractUnrecognisedTypeFails(t *testing.T) {
	msg := wire.Msg{Meta: map[string]string{"Name": "han", "Type": "droid"}}
	_, err := Extract(msg)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidCert, errs.KindOf(err))
}

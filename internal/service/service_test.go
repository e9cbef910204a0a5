package service

import (
	"context"
	"testing"
	"time"

	"github.com/intecture/inauth/internal/api"
	"github.com/intecture/inauth/internal/cache"
	"github.com/intecture/inauth/internal/store"
	"github.com/intecture/inauth/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopDispatchesOneRequestAndStops(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewDisk(dir, nil)
	require.NoError(t, err)
	c := cache.New()
	reqSocket := &wire.FakeSocket{}
	reqSocket.In = append(reqSocket.In, wire.Msg{
		Frames: [][]byte{[]byte("rid"), []byte("cert::create"), []byte("user"), []byte("luke")},
		Meta:   map[string]string{"Name": "luke", "Type": "user"},
	})

	a := api.New(st, c, &wire.FakeSocket{}, nil)
	l := New(reqSocket, a, nil, nil)

	l.Start(context.Background())

	require.Eventually(t, func() bool {
		return len(reqSocket.Out) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, "Ok", reqSocket.Out[0].String(1))

	l.Stop()
	l.Wait()
}

func TestLoopStopsCleanlyWithNoSockets(t *testing.T) {
	l := New(nil, nil, nil, nil)
	l.Start(context.Background())
	l.Stop()
	l.Wait()
}

package wire

// FakeSocket is an in-memory Socket used by package tests across this
// service so component logic (cache, api, proxy, zap) can be exercised
// without a real ZeroMQ context. Sent messages queue on Out; Recv drains
// In, blocking is not modeled: callers pre-load In before invoking code
// under test.
type FakeSocket struct {
	In  []Msg
	Out []Msg
}

func (f *FakeSocket) Send(m Msg) error {
	f.Out = append(f.Out, m)
	return nil
}

func (f *FakeSocket) Recv() (Msg, error) {
	if len(f.In) == 0 {
		return Msg{}, ErrNoMessage
	}
	m := f.In[0]
	f.In = f.In[1:]
	return m, nil
}

func (f *FakeSocket) Close() error { return nil }

// ErrNoMessage is returned by FakeSocket.Recv when In is empty.
var ErrNoMessage = fakeErr("wire: no message queued")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

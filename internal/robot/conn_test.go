package robot

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	messageType int
	data        []byte
	err         error
}

// fakeSocket implementa Socket para os testes, com leituras sob demanda
type fakeSocket struct {
	mu     sync.Mutex
	writes [][]byte
	reads  chan readResult
	closed bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{reads: make(chan readResult, 16)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	r, ok := <-s.reads
	if !ok {
		return 0, nil, errors.New("socket fechado")
	}
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.messageType, r.data, nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("escrita em socket fechado")
	}
	cp := append([]byte(nil), data...)
	s.writes = append(s.writes, cp)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.reads)
	}
	return nil
}

func (s *fakeSocket) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fail injeta uma queda de transporte na próxima leitura
func (s *fakeSocket) fail(err error) {
	s.reads <- readResult{err: err}
}

// push entrega uma mensagem ao loop de leitura
func (s *fakeSocket) push(messageType int, data []byte) {
	s.reads <- readResult{messageType: messageType, data: data}
}

// fakeDialer entrega fakeSockets e registra as discagens. Com gate
// definido, Dial bloqueia até o canal ser fechado.
type fakeDialer struct {
	mu      sync.Mutex
	gate    chan struct{}
	errs    int
	dials   int
	sockets []*fakeSocket
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{}
}

func (d *fakeDialer) Dial(string) (Socket, error) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.errs > 0 {
		d.errs--
		return nil, errors.New("discagem recusada")
	}
	s := newFakeSocket()
	d.sockets = append(d.sockets, s)
	return s, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) socketCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sockets)
}

func (d *fakeDialer) lastSocket() *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sockets) == 0 {
		return nil
	}
	return d.sockets[len(d.sockets)-1]
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestSendQueuesUntilOpen(t *testing.T) {
	d := newFakeDialer()
	d.gate = make(chan struct{})

	c := NewConn("ws://rover:8765", d)
	c.Open()

	c.Send([]byte("a"))
	c.Send([]byte("b"))
	c.Send([]byte("c"))

	// Nada pode ter chegado ao transporte antes da abertura
	require.Equal(t, 3, c.PendingCount())
	require.Equal(t, 0, d.socketCount())

	close(d.gate)

	require.Eventually(t, func() bool {
		s := d.lastSocket()
		return s != nil && len(s.Writes()) == 3
	}, waitFor, tick)

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, d.lastSocket().Writes())
	assert.Equal(t, StateOpen, c.State())
	assert.Zero(t, c.PendingCount())
}

func TestOpenCallbacksFireInRegistrationOrder(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		c.OnOpen(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	c.Open()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, waitFor, tick)

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, order)
	mu.Unlock()

	// Registro com a conexão já aberta dispara imediatamente
	fired := false
	c.OnOpen(func() { fired = true })
	assert.True(t, fired)
}

func TestCloseIsIdempotentAndSuppressesRetry(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)
	c.SetRetryPolicy(NewRetryPolicy(nil, ConstantDelay(0)))

	var closes int32
	c.OnClose(func(error) { atomic.AddInt32(&closes, 1) })

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	c.Close()
	c.Close()

	require.Eventually(t, func() bool { return c.State() == StateClosed }, waitFor, tick)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&closes) == 1 }, waitFor, tick)

	// Nenhuma rediscagem pode acontecer depois de um encerramento limpo
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&closes))
	assert.Equal(t, 1, d.dialCount())
}

func TestRetryAfterUnexpectedClose(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)
	c.SetRetryPolicy(NewRetryPolicy(nil, ConstantDelay(0)))

	var opens int32
	c.OnOpen(func() { atomic.AddInt32(&opens, 1) })

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	d.lastSocket().fail(errors.New("queda de rede"))

	// A mesma conexão volta sozinha, com os callbacks preservados
	require.Eventually(t, func() bool { return d.dialCount() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&opens) == 2 }, waitFor, tick)
	assert.Equal(t, StateOpen, c.State())
}

func TestRetryPredicateEvaluatedFresh(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)

	var allow atomic.Bool
	allow.Store(true)
	c.SetRetryPolicy(NewRetryPolicy(func() (bool, error) {
		return allow.Load(), nil
	}, ConstantDelay(0)))

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	// Primeira queda: predicado aprova e a conexão volta
	d.lastSocket().fail(errors.New("queda"))
	require.Eventually(t, func() bool { return d.dialCount() == 2 && c.State() == StateOpen }, waitFor, tick)

	// Segunda queda: o predicado é relido e agora reprova
	allow.Store(false)
	d.lastSocket().fail(errors.New("queda"))
	require.Eventually(t, func() bool { return c.State() == StateClosed }, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, d.dialCount())
}

func TestRetryPredicateErrorMeansNoRetry(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)
	c.SetRetryPolicy(NewRetryPolicy(func() (bool, error) {
		return true, errors.New("estado indisponível")
	}, ConstantDelay(0)))

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	d.lastSocket().fail(errors.New("queda"))
	require.Eventually(t, func() bool { return c.State() == StateClosed }, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.dialCount())
}

func TestDialFailureRunsErrorPathAndRetries(t *testing.T) {
	d := newFakeDialer()
	d.errs = 1

	c := NewConn("ws://rover:8765", d)
	c.SetRetryPolicy(NewRetryPolicy(nil, ConstantDelay(0)))

	var errs, closes int32
	c.OnError(func(error) { atomic.AddInt32(&errs, 1) })
	c.OnClose(func(error) { atomic.AddInt32(&closes, 1) })

	c.Open()

	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)
	assert.Equal(t, 2, d.dialCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&errs))
	assert.Equal(t, int32(1), atomic.LoadInt32(&closes))
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	c.Close()
	require.Eventually(t, func() bool { return c.State() == StateClosed }, waitFor, tick)

	c.Send([]byte("tarde demais"))
	assert.Zero(t, c.PendingCount())
}

func TestCloseWhileConnecting(t *testing.T) {
	d := newFakeDialer()
	d.gate = make(chan struct{})

	c := NewConn("ws://rover:8765", d)

	var closes int32
	c.OnClose(func(error) { atomic.AddInt32(&closes, 1) })

	c.Open()
	c.Close()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&closes) == 1 }, waitFor, tick)
	assert.Equal(t, StateClosed, c.State())

	// A discagem tardia não pode ressuscitar a conexão
	close(d.gate)
	require.Eventually(t, func() bool {
		s := d.lastSocket()
		return s != nil && s.isClosed()
	}, waitFor, tick)
	assert.Equal(t, StateClosed, c.State())
}

func TestMessagesDeliveredInTransportOrder(t *testing.T) {
	d := newFakeDialer()
	c := NewConn("ws://rover:8765", d)

	var mu sync.Mutex
	var got []string
	c.OnMessage(func(_ int, data []byte) {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
	})

	c.Open()
	require.Eventually(t, func() bool { return c.State() == StateOpen }, waitFor, tick)

	s := d.lastSocket()
	s.push(1, []byte("um"))
	s.push(1, []byte("dois"))
	s.push(1, []byte("três"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, waitFor, tick)

	mu.Lock()
	assert.Equal(t, []string{"um", "dois", "três"}, got)
	mu.Unlock()
}

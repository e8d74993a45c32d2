package robot

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rover_go/pkg/logger"
)

// State representa o estado do ciclo de vida de uma conexão com o rover
type State int

const (
	// StateConnecting socket criado, abertura ainda não confirmada
	StateConnecting State = iota
	// StateOpen handshake concluído, tráfego liberado
	StateOpen
	// StateClosing encerramento limpo solicitado pelo chamador
	StateClosing
	// StateClosed conexão encerrada (limpa ou por falha)
	StateClosed
)

var stateNames = [...]string{"connecting", "open", "closing", "closed"}

// String retorna o nome do estado
func (s State) String() string {
	if s < StateConnecting || s > StateClosed {
		return "invalid"
	}
	return stateNames[s]
}

// Socket é a superfície mínima de transporte usada pela conexão.
// *websocket.Conn a satisfaz; os testes usam uma implementação falsa.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer abre um Socket para a URL dada
type Dialer interface {
	Dial(url string) (Socket, error)
}

// WebsocketDialer é o Dialer padrão, por cima do gorilla/websocket
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial abre uma conexão WebSocket com o rover
func (d *WebsocketDialer) Dial(url string) (Socket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	sock, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return sock, nil
}

// Conn administra o ciclo de vida de uma conexão com o rover: fila de
// envios pendentes, callbacks de abertura/fechamento/erro e a política
// de reconexão. O consumidor de mensagens roda na goroutine de leitura,
// preservando a ordem de chegada do transporte.
type Conn struct {
	url    string
	dialer Dialer

	mu           sync.Mutex
	state        State
	sock         Socket
	pending      [][]byte
	retry        *RetryPolicy
	userClosed   bool
	dialInFlight bool
	gen          int
	retryTimer   *time.Timer

	onOpen    []func()
	onClose   []func(err error)
	onError   []func(err error)
	onMessage func(messageType int, data []byte)
}

// NewConn cria uma conexão no estado Connecting. A discagem só começa
// em Open. Um dialer nulo usa o WebsocketDialer padrão.
func NewConn(url string, dialer Dialer) *Conn {
	if dialer == nil {
		dialer = &WebsocketDialer{HandshakeTimeout: 10 * time.Second}
	}
	return &Conn{
		url:    url,
		dialer: dialer,
		state:  StateConnecting,
	}
}

// SetRetryPolicy define a política de reconexão para quedas inesperadas
func (c *Conn) SetRetryPolicy(p *RetryPolicy) {
	c.mu.Lock()
	c.retry = p
	c.mu.Unlock()
}

// URL retorna o endereço desta conexão
func (c *Conn) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// SetURL troca o endereço usado nas próximas discagens. Deve ser
// chamado antes de Open; uma conexão já discando segue no endereço
// antigo até a próxima abertura.
func (c *Conn) SetURL(url string) {
	c.mu.Lock()
	c.url = url
	c.mu.Unlock()
}

// State retorna o estado atual da conexão
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnOpen registra um callback de abertura. Todos os registrados são
// chamados em ordem de registro a cada abertura. Registrar com a
// conexão já aberta dispara o callback imediatamente.
func (c *Conn) OnOpen(fn func()) {
	c.mu.Lock()
	if c.state == StateOpen {
		c.mu.Unlock()
		fn()
		return
	}
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()
}

// OnClose registra um callback de fechamento
func (c *Conn) OnClose(fn func(err error)) {
	c.mu.Lock()
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// OnError registra um callback de erro de transporte
func (c *Conn) OnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = append(c.onError, fn)
	c.mu.Unlock()
}

// OnMessage define o consumidor de mensagens recebidas. Um único
// consumidor por conexão; chamado sincronicamente na goroutine de
// leitura.
func (c *Conn) OnMessage(fn func(messageType int, data []byte)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// Open inicia (ou reinicia) a discagem em segundo plano. Chamadas com
// a conexão já ativa são ignoradas. Abrir depois de Close expressa uma
// nova intenção do chamador e reativa a conexão.
func (c *Conn) Open() {
	c.open(true)
}

// open centraliza a abertura; reaberturas da política de reconexão não
// podem ressuscitar uma conexão encerrada pelo chamador.
func (c *Conn) open(user bool) {
	c.mu.Lock()
	if user {
		c.userClosed = false
	} else if c.userClosed {
		c.mu.Unlock()
		return
	}
	if c.state == StateOpen || c.dialInFlight {
		c.mu.Unlock()
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.state = StateConnecting
	c.dialInFlight = true
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.run(gen)
}

// Send transmite imediatamente quando a conexão está aberta; caso
// contrário enfileira em ordem FIFO para transmissão na próxima
// abertura. Nunca retorna erro: falhas de transporte chegam pelos
// callbacks de erro/fechamento.
func (c *Conn) Send(data []byte) {
	c.mu.Lock()
	if c.state == StateOpen && c.sock != nil {
		sock := c.sock
		err := sock.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			logger.Debugf("Falha de escrita em %s: %v", c.url, err)
		}
		return
	}
	if c.userClosed {
		c.mu.Unlock()
		logger.Debugf("Envio descartado, conexão encerrada: %s", c.url)
		return
	}
	c.pending = append(c.pending, data)
	c.mu.Unlock()
}

// PendingCount informa quantos envios aguardam a abertura da conexão
func (c *Conn) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close encerra a conexão de forma limpa e suprime qualquer reconexão
// agendada. Chamadas repetidas são inofensivas.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.userClosed || c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.userClosed = true
	c.pending = nil
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}

	if c.sock != nil {
		c.state = StateClosing
		sock := c.sock
		c.mu.Unlock()
		// O loop de leitura observa o fechamento e completa a
		// transição para Closed
		sock.Close()
		return
	}

	alreadyClosed := c.state == StateClosed
	c.state = StateClosed
	closeCbs := append([]func(error){}, c.onClose...)
	c.mu.Unlock()

	if !alreadyClosed {
		for _, fn := range closeCbs {
			fn(nil)
		}
	}
}

// run disca e, em caso de sucesso, bombeia mensagens até a queda da
// conexão. Roda em goroutine própria, uma por geração.
func (c *Conn) run(gen int) {
	sock, err := c.dialer.Dial(c.url)

	c.mu.Lock()
	c.dialInFlight = false
	if gen != c.gen || c.userClosed {
		c.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.handleClosed(gen, err)
		return
	}

	c.sock = sock
	c.state = StateOpen
	if c.retry != nil {
		c.retry.Reset()
	}

	// Drenar a fila pendente em ordem estrita, antes de liberar
	// qualquer envio novo. O que não couber numa conexão que já caiu
	// permanece na fila para a próxima abertura.
	queue := c.pending
	c.pending = nil
	for i, msg := range queue {
		if werr := sock.WriteMessage(websocket.TextMessage, msg); werr != nil {
			logger.Debugf("Falha ao drenar fila de %s: %v", c.url, werr)
			c.pending = append(c.pending, queue[i:]...)
			break
		}
	}
	openCbs := append([]func(){}, c.onOpen...)
	c.mu.Unlock()

	logger.Infof("Conexão aberta: %s", c.url)
	for _, fn := range openCbs {
		fn()
	}

	c.readLoop(gen, sock)
}

// readLoop entrega mensagens ao consumidor até a conexão cair
func (c *Conn) readLoop(gen int, sock Socket) {
	for {
		messageType, data, err := sock.ReadMessage()
		if err != nil {
			c.handleClosed(gen, err)
			return
		}

		c.mu.Lock()
		stale := gen != c.gen
		handler := c.onMessage
		c.mu.Unlock()
		if stale {
			return
		}
		if handler != nil {
			handler(messageType, data)
		}
	}
}

// handleClosed completa a transição para Closed, notifica os callbacks
// e aciona a política de reconexão quando a queda não foi solicitada
func (c *Conn) handleClosed(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	clean := c.state == StateClosing || c.userClosed
	c.sock = nil
	c.state = StateClosed
	errCbs := append([]func(error){}, c.onError...)
	closeCbs := append([]func(error){}, c.onClose...)
	retry := c.retry
	c.mu.Unlock()

	if clean {
		logger.Infof("Conexão encerrada: %s", c.url)
		for _, fn := range closeCbs {
			fn(nil)
		}
		return
	}

	logger.Warnf("Conexão perdida: %s (%v)", c.url, cause)
	for _, fn := range errCbs {
		fn(cause)
	}
	for _, fn := range closeCbs {
		fn(cause)
	}

	if retry == nil {
		return
	}
	delay, ok := retry.Approve()
	if !ok {
		logger.Debugf("Reconexão suprimida para %s", c.url)
		return
	}

	c.mu.Lock()
	if c.userClosed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	logger.Infof("Reconexão em %s para %s", delay, c.url)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.open(false)
	})
	c.mu.Unlock()
}

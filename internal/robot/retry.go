package robot

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"rover_go/pkg/logger"
)

// DefaultRetryDelay é o intervalo padrão entre tentativas de reconexão
const DefaultRetryDelay = 5 * time.Second

// RetryPolicy decide se e quando uma conexão caída deve ser reaberta.
// O predicado é avaliado a cada queda, sempre com o estado mais
// recente; um predicado nulo aprova sempre. Não há limite de
// tentativas: enquanto o predicado aprovar, a reconexão continua.
type RetryPolicy struct {
	mu        sync.Mutex
	predicate func() (bool, error)
	backoff   backoff.BackOff
}

// NewRetryPolicy cria uma política com o predicado e a curva de espera
// dados. Uma curva nula usa o intervalo constante padrão.
func NewRetryPolicy(predicate func() (bool, error), b backoff.BackOff) *RetryPolicy {
	if b == nil {
		b = backoff.NewConstantBackOff(DefaultRetryDelay)
	}
	return &RetryPolicy{predicate: predicate, backoff: b}
}

// ConstantDelay devolve uma curva de intervalo fixo. Zero ou negativo
// significa reconexão imediata.
func ConstantDelay(d time.Duration) backoff.BackOff {
	if d <= 0 {
		return &backoff.ZeroBackOff{}
	}
	return backoff.NewConstantBackOff(d)
}

// ExponentialDelay devolve uma curva exponencial sem prazo de
// desistência, limitada a max por tentativa
func ExponentialDelay(initial, max time.Duration) backoff.BackOff {
	e := backoff.NewExponentialBackOff()
	e.InitialInterval = initial
	e.MaxInterval = max
	e.MaxElapsedTime = 0
	e.Reset()
	return e
}

// Approve avalia o predicado e, aprovada a reconexão, devolve o tempo
// de espera até a próxima tentativa. Um predicado que retorna erro
// conta como reprovação.
func (p *RetryPolicy) Approve() (time.Duration, bool) {
	if p == nil {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.predicate != nil {
		ok, err := p.predicate()
		if err != nil {
			logger.Warnf("Predicado de reconexão falhou, desistindo: %v", err)
			return 0, false
		}
		if !ok {
			return 0, false
		}
	}

	d := p.backoff.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}

// Reset reinicia a curva de espera. Chamado quando a conexão abre com
// sucesso, para que a próxima queda recomece do intervalo inicial.
func (p *RetryPolicy) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.backoff.Reset()
	p.mu.Unlock()
}

// Package chat implementa la máquina de estados de la sesión de chat: el
// historial persistido, el input pendiente y la espera de la respuesta del bot.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookbot/internal/domain"
	"bookbot/internal/store"
)

// HistoryKey es la clave del historial en el store.
const HistoryKey = "chatHistory"

// DefaultResponderTimeout acota la espera de cada respuesta si no se configura otra.
const DefaultResponderTimeout = 60 * time.Second

// Responder produce la respuesta del bot para un mensaje del usuario.
type Responder interface {
	Respond(ctx context.Context, utterance string) (domain.Reply, error)
}

// State es el estado de la sesión: libre o esperando respuesta.
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View es la proyección que se renderiza: el historial más el centinela de
// carga mientras se espera respuesta.
type View struct {
	Messages         []domain.Message `json:"messages"`
	AwaitingResponse bool             `json:"awaitingResponse"`
	Input            string           `json:"input"`
}

// Option configura una Session en NewSession.
type Option func(*Session)

// WithResponderTimeout acota cada llamada al Responder; d <= 0 la deja sin límite.
func WithResponderTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithIDGenerator reemplaza el generador de ids de mensaje.
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(s *Session) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger fija el logger de la sesión.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session es la conversación con el bot: historial persistido, input pendiente
// y a lo sumo una respuesta en curso.
type Session struct {
	mu        sync.Mutex
	history   *store.Persisted[[]domain.Message]
	input     string
	state     State
	responder Responder
	timeout   time.Duration
	newID     domain.IDGenerator
	logger    *zap.Logger
	inflight  sync.WaitGroup

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
}

// NewSession carga el historial guardado; si no hay uno válido arranca con el saludo.
func NewSession(ctx context.Context, st store.Store, responder Responder, opts ...Option) *Session {
	s := &Session{
		responder: responder,
		timeout:   DefaultResponderTimeout,
		newID:     domain.NewID,
		logger:    zap.NewNop(),
		watchers:  make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = store.NewPersisted(ctx, st, HistoryKey, domain.Greeting(), s.logger)
	s.history.OnChange(func([]domain.Message) { s.notify() })
	return s
}

// Sync aplica los cambios de historial hechos por otros contextos hasta que ctx termina.
func (s *Session) Sync(ctx context.Context) (<-chan struct{}, error) {
	return s.history.Sync(ctx)
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Log devuelve una copia del historial, sin centinelas.
func (s *Session) Log() []domain.Message {
	return domain.WithoutLoading(s.history.Get())
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := s.Log()
	if s.state == AwaitingResponse {
		messages = append(messages, domain.LoadingMessage())
	}
	return View{Messages: messages, AwaitingResponse: s.state == AwaitingResponse, Input: s.input}
}

// Submit envía el input pendiente. Con input en blanco o una respuesta en
// curso no hace nada y devuelve false. Si se acepta, el canal se cierra cuando
// la respuesta (o la disculpa) ya está en el historial.
func (s *Session) Submit(ctx context.Context) (<-chan struct{}, bool) {
	s.mu.Lock()
	return s.submitLocked(ctx, s.input)
}

// SubmitText envía text en un solo paso, sin pasar por el input pendiente.
// Si el envío se ignora el input pendiente no cambia.
func (s *Session) SubmitText(ctx context.Context, text string) (<-chan struct{}, bool) {
	s.mu.Lock()
	return s.submitLocked(ctx, text)
}

// submitLocked se llama con s.mu tomado y lo libera.
func (s *Session) submitLocked(ctx context.Context, raw string) (<-chan struct{}, bool) {
	text, ok := domain.NormalizeUtterance(raw)
	if !ok || s.state != Idle {
		s.mu.Unlock()
		return nil, false
	}
	s.appendLocked(ctx, domain.Message{ID: s.newID(), Sender: domain.SenderUser, Text: text})
	s.input = ""
	s.state = AwaitingResponse
	s.inflight.Add(1)
	s.mu.Unlock()
	s.notify()

	done := make(chan struct{})
	go s.respond(ctx, text, done)
	return done, true
}

// Wait bloquea hasta que no quede ninguna respuesta en curso.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) respond(ctx context.Context, text string, done chan struct{}) {
	defer close(done)
	defer s.inflight.Done()

	start := time.Now()
	reply, err := s.call(ctx, text)

	msg := domain.Message{ID: s.newID(), Sender: domain.SenderBot}
	if err != nil {
		s.logger.Warn("responder failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		msg.Text = domain.ApologyText
	} else {
		s.logger.Info("responder replied",
			zap.Int("recommendations", len(reply.Recommendations)),
			zap.Duration("elapsed", time.Since(start)),
		)
		msg.Text = reply.Text
		msg.Recommendations = reply.Recommendations
	}

	// La respuesta se guarda aunque quien envió ya no esté esperando.
	persistCtx := context.WithoutCancel(ctx)
	s.mu.Lock()
	s.appendLocked(persistCtx, msg)
	s.state = Idle
	s.mu.Unlock()
	s.notify()
}

func (s *Session) call(ctx context.Context, text string) (reply domain.Reply, err error) {
	if s.responder == nil {
		return domain.Reply{}, fmt.Errorf("chat: no responder configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat: responder panic: %v", r)
		}
	}()
	return s.responder.Respond(ctx, text)
}

// appendLocked agrega sobre el historial más reciente, incluidos los cambios
// externos ya observados, y persiste el historial completo.
func (s *Session) appendLocked(ctx context.Context, msg domain.Message) {
	s.history.Update(ctx, func(log []domain.Message) []domain.Message {
		return append(domain.WithoutLoading(log), msg)
	})
}

// Watch emite la vista actual y luego una vista nueva tras cada cambio. Las
// vistas intermedias pueden colapsarse; la última siempre se entrega.
func (s *Session) Watch(ctx context.Context) <-chan View {
	out := make(chan View, 1)
	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}

	s.watchMu.Lock()
	s.watchers[dirty] = struct{}{}
	s.watchMu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			s.watchMu.Lock()
			delete(s.watchers, dirty)
			s.watchMu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
				select {
				case out <- s.View():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *Session) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for dirty := range s.watchers {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}
}

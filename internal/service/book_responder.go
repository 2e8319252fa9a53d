package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bookbot/internal/domain"
	"bookbot/internal/llm"
)

var (
	ErrMalformedReply       = errors.New("responder: malformed reply")
	ErrResponderUnavailable = errors.New("responder: unavailable")
)

// BookBotInstruction es la instrucción de sistema del asistente.
const BookBotInstruction = `You are BookBot, a super-smart and fun AI assistant with a Gen Z personality. Your mission is to help users find PDF versions of books.
- Your tone should be casual, friendly, and witty. Use emojis where it feels natural 😉.
- If a user asks for a book, search for it. If you can't find it, be encouraging and suggest trying another title or author.
- For cover images, generate a placeholder URL from https://picsum.photos/400/600.
- IMPORTANT: You MUST ALWAYS return your response as a single JSON object of the form {"reply": string, "books": [{"title", "author", "summary", "coverImageUrl", "pdfLinks": [{"source", "url"}]}]}. Do not output anything other than the JSON object.`

const DefaultHistoryTurns = 10

// BookResponder adapta un llm.Client a chat.Responder. Mantiene en memoria los
// últimos intercambios para dar contexto multi-turno al modelo.
type BookResponder struct {
	client   llm.Client
	maxTurns int
	logger   *zap.Logger

	mu      sync.Mutex
	history []llm.Turn
}

func NewBookResponder(client llm.Client, maxTurns int, logger *zap.Logger) *BookResponder {
	if maxTurns < 0 {
		maxTurns = DefaultHistoryTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookResponder{client: client, maxTurns: maxTurns, logger: logger}
}

func (r *BookResponder) Respond(ctx context.Context, utterance string) (domain.Reply, error) {
	if r == nil || r.client == nil {
		return domain.Reply{}, fmt.Errorf("%w: no llm client", ErrResponderUnavailable)
	}

	req := llm.Request{
		System:    BookBotInstruction,
		History:   r.snapshot(),
		Utterance: utterance,
		JSON:      true,
	}
	raw, err := r.client.Generate(ctx, req)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %w", ErrResponderUnavailable, err)
	}

	reply, err := parseReply(raw)
	if err != nil {
		r.logger.Warn("discarding malformed reply", zap.Int("raw_len", len(raw)), zap.Error(err))
		return domain.Reply{}, err
	}

	r.remember(utterance, cleanReplyPayload(raw))
	return reply, nil
}

// Reset olvida el contexto acumulado.
func (r *BookResponder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

func (r *BookResponder) snapshot() []llm.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]llm.Turn(nil), r.history...)
}

func (r *BookResponder) remember(utterance, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history,
		llm.Turn{Role: llm.RoleUser, Text: utterance},
		llm.Turn{Role: llm.RoleModel, Text: reply},
	)
	if limit := r.maxTurns * 2; len(r.history) > limit {
		r.history = append([]llm.Turn(nil), r.history[len(r.history)-limit:]...)
	}
}

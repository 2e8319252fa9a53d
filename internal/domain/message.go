package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Sender identifica quién produjo un mensaje del chat.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderBot     Sender = "bot"
	SenderLoading Sender = "loading"
)

const (
	// GreetingID es el id fijo del saludo sembrado en un historial vacío.
	GreetingID = "initial"
	// LoadingID identifica al centinela de "respuesta pendiente".
	LoadingID = "loading"

	GreetingText = "Hey! What book are you looking for? I'll see if I can hunt down a PDF for ya. 🕵️‍♀️"
	ApologyText  = "Yikes! Something went wrong on my end. Let's try that again."
)

type Message struct {
	ID              string           `json:"id"`
	Sender          Sender           `json:"sender"`
	Text            string           `json:"text,omitempty"`
	Recommendations []Recommendation `json:"books,omitempty"`
}

// IDGenerator produce ids de mensaje únicos durante la vida del historial.
type IDGenerator func() string

// NewID es el generador por defecto (UUIDv4).
func NewID() string {
	return uuid.NewString()
}

// Greeting devuelve el historial inicial cuando no hay nada persistido.
func Greeting() []Message {
	return []Message{{ID: GreetingID, Sender: SenderBot, Text: GreetingText}}
}

// LoadingMessage es el centinela transitorio; nunca se persiste.
func LoadingMessage() Message {
	return Message{ID: LoadingID, Sender: SenderLoading}
}

func (m Message) IsLoading() bool {
	return m.Sender == SenderLoading
}

// WithoutLoading filtra cualquier centinela para que no llegue al store.
func WithoutLoading(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.IsLoading() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// NormalizeUtterance recorta espacios; un resultado vacío no es enviable.
func NormalizeUtterance(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	return text, text != ""
}

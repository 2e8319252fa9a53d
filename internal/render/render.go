// Package render dibuja el chat en la terminal con la paleta del tema activo.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"bookbot/internal/chat"
	"bookbot/internal/domain"
)

const (
	BrandPurple = lipgloss.Color("#8A2BE2")
	NeonPink    = lipgloss.Color("#FF2E97")

	LightBackground = lipgloss.Color("#F5F3FF")
	LightSurface    = lipgloss.Color("#F3F4F6")
	LightForeground = lipgloss.Color("#111827")
	LightMuted      = lipgloss.Color("#6B7280")

	DarkBackground = lipgloss.Color("#0D0221")
	DarkSurface    = lipgloss.Color("#1A1033")
	DarkForeground = lipgloss.Color("#F3F4F6")
	DarkMuted      = lipgloss.Color("#9CA3AF")
)

const bubbleWidth = 60

// Palette agrupa los colores de un tema.
type Palette struct {
	Background lipgloss.Color
	Surface    lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
}

func PaletteFor(dark bool) Palette {
	if dark {
		return Palette{Background: DarkBackground, Surface: DarkSurface, Foreground: DarkForeground, Muted: DarkMuted}
	}
	return Palette{Background: LightBackground, Surface: LightSurface, Foreground: LightForeground, Muted: LightMuted}
}

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	bot       lipgloss.Style
	loading   lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	muted     lipgloss.Style
	link      lipgloss.Style
}

func newStyles(p Palette) styles {
	bubble := lipgloss.NewStyle().Padding(0, 1)
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(NeonPink),
		user:      bubble.Foreground(lipgloss.Color("#FFFFFF")).Background(BrandPurple),
		bot:       bubble.Foreground(p.Foreground).Background(p.Surface),
		loading:   bubble.Foreground(p.Muted).Background(p.Surface),
		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BrandPurple).Padding(0, 1).Width(bubbleWidth - 4),
		cardTitle: lipgloss.NewStyle().Bold(true).Foreground(p.Foreground),
		muted:     lipgloss.NewStyle().Foreground(p.Muted),
		link:      lipgloss.NewStyle().Bold(true).Foreground(NeonPink),
	}
}

// Renderer es seguro para uso concurrente; SetDark puede llegar desde la
// sincronización del tema mientras se dibuja.
type Renderer struct {
	mu     sync.RWMutex
	dark   bool
	styles styles
}

func NewRenderer(dark bool) *Renderer {
	r := &Renderer{}
	r.SetDark(dark)
	return r
}

// SetDark cambia la paleta. Sirve como theme.Applier.
func (r *Renderer) SetDark(dark bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dark = dark
	r.styles = newStyles(PaletteFor(dark))
}

func (r *Renderer) Dark() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dark
}

func (r *Renderer) Header() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.styles.title.Render("📖 BookBot")
}

// View dibuja todos los mensajes de la vista, incluido el indicador de carga.
func (r *Renderer) View(v chat.View) string {
	parts := make([]string, 0, len(v.Messages))
	for _, m := range v.Messages {
		parts = append(parts, r.Message(m))
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) Message(m domain.Message) string {
	r.mu.RLock()
	s := r.styles
	r.mu.RUnlock()

	switch m.Sender {
	case domain.SenderLoading:
		return s.loading.Render("• • •")
	case domain.SenderUser:
		return lipgloss.PlaceHorizontal(bubbleWidth+10, lipgloss.Right, s.user.Render(m.Text))
	default:
		out := []string{s.bot.Render(m.Text)}
		for _, book := range m.Recommendations {
			out = append(out, r.card(s, book))
		}
		return lipgloss.JoinVertical(lipgloss.Left, out...)
	}
}

func (r *Renderer) card(s styles, b domain.Recommendation) string {
	lines := []string{
		s.cardTitle.Render(b.Title),
		s.muted.Render(b.Author),
	}
	if b.Summary != "" {
		lines = append(lines, b.Summary)
	}
	lines = append(lines, s.muted.Render("cover: "+b.Cover()))
	if !b.HasSources() {
		lines = append(lines, s.muted.Render(domain.NoSourcesText))
	}
	for _, src := range b.Sources {
		lines = append(lines, s.link.Render("⬇ "+src.Label)+" "+src.URL)
	}
	return s.card.Render(strings.Join(lines, "\n"))
}

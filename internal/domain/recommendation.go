package domain

// PlaceholderCoverURL se usa cuando el modelo no entrega portada.
const PlaceholderCoverURL = "https://picsum.photos/400/600"

// NoSourcesText se muestra cuando una recomendación no trae enlaces.
const NoSourcesText = "No PDF links found for this one, sorry! 😢"

// Source es un enlace de descarga sugerido para un libro.
type Source struct {
	Label string `json:"source"`
	URL   string `json:"url"`
}

// Recommendation es la tarjeta de libro que acompaña a una respuesta del bot.
type Recommendation struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Summary       string   `json:"summary"`
	CoverImageURL string   `json:"coverImageUrl"`
	Sources       []Source `json:"pdfLinks"`
}

// Cover devuelve la portada o el placeholder si viene vacía.
func (r Recommendation) Cover() string {
	if r.CoverImageURL == "" {
		return PlaceholderCoverURL
	}
	return r.CoverImageURL
}

func (r Recommendation) HasSources() bool {
	return len(r.Sources) > 0
}

// Reply es la respuesta estructurada del Responder.
type Reply struct {
	Text            string           `json:"reply"`
	Recommendations []Recommendation `json:"books"`
}

package service

import "google.golang.org/genai"

// BookReplySchema describe el objeto {reply, books} que el modelo debe devolver.
func BookReplySchema() *genai.Schema {
	source := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"source": {Type: genai.TypeString, Description: "The name of the website or source."},
			"url":    {Type: genai.TypeString, Description: "The direct URL to the PDF."},
		},
		Required: []string{"source", "url"},
	}
	book := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":         {Type: genai.TypeString},
			"author":        {Type: genai.TypeString},
			"summary":       {Type: genai.TypeString, Description: "A short, engaging summary of the book."},
			"coverImageUrl": {Type: genai.TypeString, Description: "A URL to a placeholder cover image, e.g., from picsum.photos."},
			"pdfLinks": {
				Type:        genai.TypeArray,
				Description: "A list of potential PDF sources. Can be an empty list.",
				Items:       source,
			},
		},
		Required: []string{"title", "author", "summary", "coverImageUrl", "pdfLinks"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reply": {
				Type:        genai.TypeString,
				Description: "A witty, conversational, Gen-Z style reply to the user. Use emojis! 😉",
			},
			"books": {
				Type:        genai.TypeArray,
				Description: "A list of books found that match the user's request. Can be an empty list.",
				Items:       book,
			},
		},
		Required: []string{"reply", "books"},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookbot/internal/config"
	"bookbot/internal/llm"
	"bookbot/internal/service"
)

// Scenario es una consulta real contra el modelo configurado y lo que se espera de ella.
type Scenario struct {
	Name      string
	Utterance string
	WantBooks bool
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	client, err := llm.NewFromConfig(ctx, cfg, service.BookReplySchema(), zap.NewNop())
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}

	scenarios := []Scenario{
		{Name: "Título conocido", Utterance: "Dune", WantBooks: true},
		{Name: "Autor", Utterance: "something by Ursula K. Le Guin", WantBooks: true},
		{Name: "Título inexistente", Utterance: "Xyzzy42"},
		{Name: "Saludo", Utterance: "hey bookbot, what's up?"},
	}

	passed := 0
	total := len(scenarios)

	for _, sc := range scenarios {
		fmt.Printf("=== Ejecutando: %s ===\n", sc.Name)

		// Cada escenario arranca sin historial.
		responder := service.NewBookResponder(client, cfg.ResponderHistory, zap.NewNop())
		runCtx, cancel := context.WithTimeout(ctx, cfg.ResponderTimeout)
		start := time.Now()
		reply, err := responder.Respond(runCtx, sc.Utterance)
		cancel()
		if err != nil {
			kind := "transport"
			if errors.Is(err, service.ErrMalformedReply) {
				kind = "malformed"
			}
			fmt.Printf("❌ FAIL [%s] %s: %v\n\n", sc.Name, kind, err)
			continue
		}

		fmt.Printf("--- Respuesta (%s) ---\n%s\n", time.Since(start).Round(time.Millisecond), reply.Text)
		for _, b := range reply.Recommendations {
			fmt.Printf("  • %s, %s (%d enlaces)\n", b.Title, b.Author, len(b.Sources))
		}
		fmt.Println("------------------------")

		gotBooks := len(reply.Recommendations) > 0
		if !sc.WantBooks || gotBooks {
			fmt.Printf("✅ PASS [%s] libros=%d\n\n", sc.Name, len(reply.Recommendations))
			passed++
		} else {
			fmt.Printf("❌ FAIL [%s] se esperaban libros\n\n", sc.Name)
		}
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
}

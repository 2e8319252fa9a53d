package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookbot/internal/chat"
	"bookbot/internal/config"
	"bookbot/internal/llm"
	"bookbot/internal/render"
	"bookbot/internal/service"
	"bookbot/internal/store"
	"bookbot/internal/theme"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("abrir store: %v", err)
	}
	defer st.Close()

	llmClient, err := llm.NewFromConfig(ctx, cfg, service.BookReplySchema(), logger)
	if err != nil {
		log.Fatalf("cliente llm: %v", err)
	}

	renderer := render.NewRenderer(true)
	themeState := theme.New(ctx, st, renderer.SetDark, logger)
	session := chat.NewSession(ctx, st, service.NewBookResponder(llmClient, cfg.ResponderHistory, logger),
		chat.WithResponderTimeout(cfg.ResponderTimeout),
		chat.WithLogger(logger),
	)
	if _, err := session.Sync(ctx); err != nil {
		logger.Warn("chat history sync disabled", zap.Error(err))
	}
	if _, err := themeState.Sync(ctx); err != nil {
		logger.Warn("theme sync disabled", zap.Error(err))
	}

	fmt.Println(renderer.Header())
	fmt.Println("Escribe el libro que buscas. /theme cambia el tema, /quit sale.")

	stopPrinting := startPrinter(ctx, session, newPrinter(os.Stdout, renderer))
	shutdown := func() {
		if session.State() == chat.AwaitingResponse {
			fmt.Println("Esperando la última respuesta...")
		}
		session.Wait()
		stopPrinting()
	}

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			shutdown()
			return
		case line, ok := <-lines:
			if !ok {
				shutdown()
				return
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				shutdown()
				return
			case "/theme":
				fmt.Printf("Tema: %s\n", themeState.Toggle(ctx))
				continue
			}
			session.SetInput(line)
			if _, ok := session.Submit(context.WithoutCancel(ctx)); !ok && session.State() == chat.AwaitingResponse {
				fmt.Println("BookBot todavía está buscando, espera un momento...")
			}
		}
	}
}

func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}

// startPrinter imprime cada vista nueva de la sesión. La función devuelta
// imprime la vista final y espera a que el printer termine.
func startPrinter(ctx context.Context, session *chat.Session, p *printer) func() {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for view := range session.Watch(watchCtx) {
			p.print(view)
		}
	}()
	return func() {
		p.print(session.View())
		cancel()
		<-done
	}
}

// printer imprime solo los mensajes que todavía no se mostraron.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	r        *render.Renderer
	seen     map[string]bool
	awaiting bool
}

func newPrinter(out io.Writer, r *render.Renderer) *printer {
	return &printer{out: out, r: r, seen: make(map[string]bool)}
}

func (p *printer) print(v chat.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range v.Messages {
		if m.IsLoading() || p.seen[m.ID] {
			continue
		}
		p.seen[m.ID] = true
		fmt.Fprintln(p.out, p.r.Message(m))
	}
	if v.AwaitingResponse && !p.awaiting {
		for _, m := range v.Messages {
			if m.IsLoading() {
				fmt.Fprintln(p.out, p.r.Message(m))
			}
		}
	}
	p.awaiting = v.AwaitingResponse
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.LogDevelopment {
		if logger, err := zap.NewDevelopment(); err == nil {
			return logger
		}
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zcfg.OutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

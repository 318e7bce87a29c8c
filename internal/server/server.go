package server

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	htmlview "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"pdf-chat/internal/config"
	"pdf-chat/internal/metrics"
	"pdf-chat/internal/models"
	"pdf-chat/internal/rag"
)

//go:embed templates
var templatesFS embed.FS

const pageView = "index"

func newViews() *htmlview.Engine {
	views, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return htmlview.NewFileSystem(http.FS(views), ".html")
}

type Indexer interface {
	Index(ctx context.Context, uploads []models.Upload) (rag.IndexReport, error)
}

type Asker interface {
	Query(ctx context.Context, question string) (models.PromptResponse, error)
}

type Server struct {
	app        *fiber.App
	listenAddr string
	indexer    Indexer
	asker      Asker
	markdown   goldmark.Markdown
}

func NewServer(cfg config.ServerConfig, indexer Indexer, asker Asker) *Server {
	s := &Server{
		listenAddr: cfg.Addr,
		indexer:    indexer,
		asker:      asker,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}

	s.app = fiber.New(fiber.Config{
		Views:                 newViews(),
		ErrorHandler:          ErrorHandler,
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})
	s.app.Use(requestLogger())

	var (
		check = s.app.Group("/check")
		apiv1 = s.app.Group("/api/v1")
	)

	s.app.Get("/", s.HandlePage)
	s.app.Post("/ask", s.HandleAskForm)
	s.app.Post("/upload", s.HandleUploadForm)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	check.Get("/healthy", HandleHealthy)
	apiv1.Post("/ask", s.HandleAsk)
	apiv1.Post("/index", s.HandleIndex)

	return s
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.listenAddr).Msg("Server listening")
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer log.Info().Msg("Server stopped")
	return s.app.ShutdownWithContext(ctx)
}

// renderMarkdown converts model output to HTML. Raw HTML in the input is
// escaped by goldmark's default renderer.
func (s *Server) renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the error handler set the final status before we record it
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request")
		return nil
	}
}

package server

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

const uploadField = "files"

type pageData struct {
	Question string
	Answer   template.HTML
	Sources  []models.SearchResult
	Error    string
	Notice   string
	Skipped  []string
}

func HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

func (s *Server) HandlePage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, pageData{})
}

// HandleAskForm answers a question submitted from the page.
func (s *Server) HandleAskForm(c *fiber.Ctx) error {
	var params AskParams
	if err := c.BodyParser(&params); err != nil {
		return s.render(c, fiber.StatusBadRequest, pageData{Error: "invalid request"})
	}
	data := pageData{Question: params.Question}
	if errs := params.Validate(); len(errs) > 0 {
		data.Error = "Please enter a question."
		return s.render(c, fiber.StatusUnprocessableEntity, data)
	}

	resp, err := s.asker.Query(c.UserContext(), params.Question)
	if err != nil {
		apiErr := fromPipelineError(err)
		log.Error().Err(err).Msg("Question failed")
		data.Error = apiErr.Message
		return s.render(c, apiErr.Code, data)
	}
	data.Answer = s.renderMarkdown(resp.Content)
	data.Sources = resp.Chunks
	return s.render(c, fiber.StatusOK, data)
}

// HandleUploadForm indexes the files uploaded from the sidebar. The request
// blocks until indexing completes.
func (s *Server) HandleUploadForm(c *fiber.Ctx) error {
	uploads, err := readUploads(c)
	if err != nil {
		return s.render(c, fiber.StatusBadRequest, pageData{Error: err.Error()})
	}

	report, err := s.indexer.Index(c.UserContext(), uploads)
	data := pageData{Skipped: report.Skipped}
	if err != nil {
		apiErr := fromPipelineError(err)
		log.Error().Err(err).Msg("Indexing failed")
		data.Error = apiErr.Message
		return s.render(c, apiErr.Code, data)
	}
	data.Notice = fmt.Sprintf("%d file(s) processed and indexed successfully (%d chunks).", len(report.Loaded), report.Chunks)
	return s.render(c, fiber.StatusOK, data)
}

func (s *Server) HandleAsk(c *fiber.Ctx) error {
	var params AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := params.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}

	resp, err := s.asker.Query(c.UserContext(), params.Question)
	if err != nil {
		return err
	}

	sources := make([]Source, len(resp.Chunks))
	for i, chunk := range resp.Chunks {
		sources[i] = Source{Content: chunk.Content, Document: chunk.Source, Similarity: chunk.Similarity}
	}
	return c.JSON(&AskResponse{
		Answer:    resp.Content,
		Sources:   sources,
		Timestamp: time.Now(),
	})
}

func (s *Server) HandleIndex(c *fiber.Ctx) error {
	uploads, err := readUploads(c)
	if err != nil {
		return NewError(fiber.StatusBadRequest, err.Error())
	}
	report, err := s.indexer.Index(c.UserContext(), uploads)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func readUploads(c *fiber.Ctx) ([]models.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("expected a multipart upload")
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return nil, errors.New("no files uploaded")
	}

	uploads := make([]models.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, models.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) render(c *fiber.Ctx, status int, data pageData) error {
	return c.Status(status).Render(pageView, data)
}

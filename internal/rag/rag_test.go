package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"pdf-chat/internal/chromemdb"
	"pdf-chat/internal/chunker"
	"pdf-chat/internal/metrics"
	"pdf-chat/internal/models"
	"pdf-chat/internal/testutil"
)

type pipeline struct {
	store    *chromemdb.VectorDBManager
	embedder *testutil.Embedder
	llm      *testutil.LLM
	indexer  *Indexer
	rag      *RAG
}

func newPipeline(t *testing.T, replace bool) *pipeline {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager(t.TempDir(), "test", false, false, "")
	if err != nil {
		t.Fatalf("NewVectorDBManager: %v", err)
	}
	emb := &testutil.Embedder{}
	llm := &testutil.LLM{ReplyFunc: func(prompt string) string {
		if strings.Contains(prompt, "sky is blue") {
			return "<think>the context says so</think>The sky is blue."
		}
		return models.FallbackAnswer
	}}
	splitter := chunker.Fixed{Size: 30, Overlap: 0}
	return &pipeline{
		store:    store,
		embedder: emb,
		llm:      llm,
		indexer:  NewIndexer(emb, splitter, store, replace),
		rag:      NewRAG(NewRetriever(emb, store, 1), NewLLMAnswerer(llm, 0.3)),
	}
}

func skyUploads() []models.Upload {
	return []models.Upload{
		{Name: "sky.pdf", Data: testutil.BuildPDF("The sky is blue." + strings.Repeat(" ", 14))},
		{Name: "other.txt", Data: []byte("Grass grows green." + strings.Repeat(" ", 12) + "Snow falls white.")},
	}
}

func TestQuery_SkyIsBlue(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, true)

	report, err := p.indexer.Index(ctx, skyUploads())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if report.Chunks == 0 || len(report.Loaded) != 2 {
		t.Fatalf("report = %+v", report)
	}

	resp, err := p.rag.Query(ctx, "What color is the sky?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Chunks) != 1 || !strings.Contains(resp.Chunks[0].Content, "sky is blue") {
		t.Fatalf("retrieved = %+v", resp.Chunks)
	}
	if !strings.Contains(resp.Content, "blue") {
		t.Errorf("answer = %q", resp.Content)
	}
	if strings.Contains(resp.Content, "<think>") {
		t.Errorf("think block not stripped: %q", resp.Content)
	}

	prompt := p.llm.Prompts[0]
	for _, want := range []string{"What color is the sky?", "sky is blue", models.FallbackAnswer} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestQuery_BeforeIndexing(t *testing.T) {
	p := newPipeline(t, true)

	resp, err := p.rag.Query(context.Background(), "What color is the sky?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Content != models.FallbackAnswer {
		t.Errorf("answer = %q, expected fallback", resp.Content)
	}
	if len(resp.Chunks) != 0 {
		t.Errorf("chunks = %v", resp.Chunks)
	}
	if p.llm.PromptCount() != 0 {
		t.Errorf("model was called %d times", p.llm.PromptCount())
	}
}

func TestQuery_EmptyQuestion(t *testing.T) {
	p := newPipeline(t, true)
	if _, err := p.rag.Query(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, expected ErrEmptyQuestion", err)
	}
	if p.embedder.Calls != 0 {
		t.Errorf("embedder called for empty question")
	}
}

func TestQuery_ModelError(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, true)
	if _, err := p.indexer.Index(ctx, skyUploads()); err != nil {
		t.Fatalf("Index: %v", err)
	}
	p.llm.Err = testutil.ErrRemote

	if _, err := p.rag.Query(ctx, "What color is the sky?"); !errors.Is(err, testutil.ErrRemote) {
		t.Fatalf("err = %v, expected remote error", err)
	}
}

func TestIndex_AppendDuplicates(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, false)

	report, err := p.indexer.Index(ctx, skyUploads())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if _, err := p.indexer.Index(ctx, skyUploads()); err != nil {
		t.Fatalf("Index: %v", err)
	}

	n, _ := p.store.Count(ctx)
	if n != 2*report.Chunks {
		t.Errorf("count = %d, expected every chunk exactly twice (%d)", n, 2*report.Chunks)
	}
}

func TestIndex_Replace(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, true)

	report, err := p.indexer.Index(ctx, skyUploads())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if _, err := p.indexer.Index(ctx, skyUploads()); err != nil {
		t.Fatalf("Index: %v", err)
	}

	n, _ := p.store.Count(ctx)
	if n != report.Chunks {
		t.Errorf("count = %d, expected %d", n, report.Chunks)
	}
}

func TestIndex_EmbeddingFailureKeepsStore(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, true)

	report, err := p.indexer.Index(ctx, skyUploads())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}

	p.embedder.Err = testutil.ErrRemote
	_, err = p.indexer.Index(ctx, []models.Upload{{Name: "new.txt", Data: []byte("Completely different content here.")}})
	if !errors.Is(err, testutil.ErrRemote) {
		t.Fatalf("err = %v, expected remote error", err)
	}

	n, _ := p.store.Count(ctx)
	if n != report.Chunks {
		t.Errorf("count = %d, expected previous %d chunks untouched", n, report.Chunks)
	}
}

func TestIndex_NoDocuments(t *testing.T) {
	p := newPipeline(t, true)
	if _, err := p.indexer.Index(context.Background(), nil); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("err = %v, expected ErrNoDocuments", err)
	}
}

func TestIndex_NoText(t *testing.T) {
	p := newPipeline(t, true)
	report, err := p.indexer.Index(context.Background(), []models.Upload{{Name: "broken.pdf", Data: []byte("garbage")}})
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, expected ErrNoText", err)
	}
	if len(report.Skipped) != 1 {
		t.Errorf("skipped = %v", report.Skipped)
	}
	if p.embedder.Calls != 0 {
		t.Errorf("embedder called without text")
	}
}

func TestSplit_DoesNotEmbedOrStore(t *testing.T) {
	ix := NewIndexer(nil, chunker.Fixed{Size: 10, Overlap: 2}, nil, true)

	report, chunks, err := ix.Split([]models.Upload{{Name: "a.txt", Data: []byte("abcdefghijklmnopqrstuvwxyz")}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	// ceil((26-2)/(10-2)) = 3
	if len(chunks) != 3 || report.Chunks != 3 {
		t.Fatalf("chunks = %q", chunks)
	}
	if report.Chars != 26 || len(report.Loaded) != 1 {
		t.Errorf("report = %+v", report)
	}
	if chunks[1][:2] != chunks[0][8:] {
		t.Errorf("overlap mismatch: %q %q", chunks[0], chunks[1])
	}
}

func TestIndex_CountsDocumentsOnlyWhenStored(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, true)
	loaded := metrics.DocumentsIndexedTotal.WithLabelValues("loaded")
	chunks := metrics.ChunksIndexedTotal
	before, beforeChunks := promtest.ToFloat64(loaded), promtest.ToFloat64(chunks)

	if _, _, err := p.indexer.Split(skyUploads()); err != nil {
		t.Fatalf("Split: %v", err)
	}
	p.embedder.Err = testutil.ErrRemote
	if _, err := p.indexer.Index(ctx, skyUploads()); !errors.Is(err, testutil.ErrRemote) {
		t.Fatalf("err = %v, expected remote error", err)
	}
	if got := promtest.ToFloat64(loaded); got != before {
		t.Errorf("loaded counter moved from %v to %v without a stored index", before, got)
	}

	p.embedder.Err = nil
	report, err := p.indexer.Index(ctx, skyUploads())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got := promtest.ToFloat64(loaded); got != before+2 {
		t.Errorf("loaded counter = %v, expected %v", got, before+2)
	}
	if got := promtest.ToFloat64(chunks); got != beforeChunks+float64(report.Chunks) {
		t.Errorf("chunk counter = %v, expected %v", got, beforeChunks+float64(report.Chunks))
	}
}

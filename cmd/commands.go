package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-chat/internal/app"
	"pdf-chat/internal/chromemdb"
	"pdf-chat/internal/chunker"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/models"
	"pdf-chat/internal/rag"
	"pdf-chat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewServer(cfg.Server, a.Indexer, a.RAG)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return serve
}

func indexCMD(cfgPath *string) *cobra.Command {
	var dryRun bool
	index := &cobra.Command{
		Use:   "index <file>...",
		Short: "Extract, chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			uploads, err := readFiles(args)
			if err != nil {
				return err
			}

			if dryRun {
				splitter, err := chunker.New(cfg.RAG)
				if err != nil {
					return err
				}
				report, chunks, err := rag.NewIndexer(nil, splitter, nil, false).Split(uploads)
				if err != nil {
					return err
				}
				helper.PrettyPrint(chunks)
				helper.PrettyPrint(report)
				return nil
			}

			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Indexer.Index(cmd.Context(), uploads)
			if len(report.Skipped) > 0 {
				log.Warn().Strs("files", report.Skipped).Msg("Skipped unreadable files")
			}
			if err != nil {
				return err
			}
			log.Info().Strs("files", report.Loaded).Int("chunks", report.Chunks).Msg("Documents indexed")
			return nil
		},
	}
	index.Flags().BoolVar(&dryRun, "dry-run", false, "print chunks without embedding or storing them")
	return index
}

func askCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			response, err := a.RAG.Query(cmd.Context(), query)
			if err != nil {
				return err
			}

			log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", query)

			log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", response.Source)

			log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", response.Content)
			return nil
		},
	}
}

func exportCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the chromem collection to a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openChromem(*cfgPath)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(args[0]); dir != "." {
				if err := helper.CreateFolder(dir); err != nil {
					return err
				}
			}
			if err := store.Export(args[0]); err != nil {
				return err
			}
			n, _ := store.Count(cmd.Context())
			log.Info().Str("file", args[0]).Int("chunks", n).Msg("Collection exported")
			return nil
		},
	}
}

func importCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load the chromem collection from an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openChromem(*cfgPath)
			if err != nil {
				return err
			}
			if err := store.Import(args[0]); err != nil {
				return err
			}
			n, _ := store.Count(cmd.Context())
			log.Info().Str("file", args[0]).Int("chunks", n).Msg("Collection imported")
			return nil
		},
	}
}

func openChromem(cfgPath string) (*chromemdb.VectorDBManager, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.RAG.Backend != "chromem" {
		return nil, errors.New("export and import need the chromem backend")
	}
	return chromemdb.NewVectorDBManager(cfg.RAG.DBPath, cfg.RAG.Collection, false, cfg.RAG.Compress, cfg.RAG.EncryptionKey)
}

func readFiles(paths []string) ([]models.Upload, error) {
	uploads := make([]models.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		uploads = append(uploads, models.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

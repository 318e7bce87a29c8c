package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-chat/internal/config"
	"pdf-chat/internal/metrics"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	var cfgPath string
	root := &cobra.Command{
		Use:           "pdf-chat",
		Short:         "Ask questions about your PDF files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigPath, "config file")

	root.AddCommand(
		serveCMD(&cfgPath),
		indexCMD(&cfgPath),
		askCMD(&cfgPath),
		exportCMD(&cfgPath),
		importCMD(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	metrics.Register()

	log.Debug().Interface("config", redacted(cfg)).Msg("Loaded config")
	return cfg, nil
}

// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.EmbedLLM.Key != "" {
		out.EmbedLLM.Key = "***"
	}
	if out.InferenceLLM.Key != "" {
		out.InferenceLLM.Key = "***"
	}
	if out.RAG.EncryptionKey != "" {
		out.RAG.EncryptionKey = "***"
	}
	if out.Database.DSN != "" {
		out.Database.DSN = "***"
	}
	return out
}

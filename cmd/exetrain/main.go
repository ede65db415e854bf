package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exe-predictor/internal/common"
	"exe-predictor/internal/dataset"
	"exe-predictor/internal/trainer"
)

func main() {
	setupLogging(common.DefaultLogLevel)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("exetrain failed")
		os.Exit(exitCode(err))
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// exitCode maps a failure to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return common.ExitOK
	case errors.Is(err, dataset.ErrEmptyTable):
		return common.ExitEmptyInput
	case errors.Is(err, trainer.ErrUnknownModel):
		return common.ExitUnknownModel
	case errors.Is(err, trainer.ErrNoUsableModel):
		return common.ExitNoUsableModel
	default:
		return common.ExitFailure
	}
}

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"trivia-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("trivia-service failed")
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/yigit/enrolladmin/internal/pkg/logger"
	"github.com/yigit/enrolladmin/internal/server"
)

// @title Enrollment Administration API
// @version 1.0
// @description Student registry, course enrollment, payment and document ledgers for an enrollment office.

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token from POST /auth/login, sent as "Bearer <token>"

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Enrollment API failed to start")
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Enrollment API stopped with errors")
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/cli"
	"github.com/ronappleton/flowdesk/internal/config"
	grpcserver "github.com/ronappleton/flowdesk/internal/grpc"
	"github.com/ronappleton/flowdesk/internal/httpserver"
	"github.com/ronappleton/flowdesk/internal/logging"
	"github.com/ronappleton/flowdesk/internal/otel"
	"github.com/ronappleton/flowdesk/internal/workflow"
	"go.uber.org/fx"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand(startServer).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startServer(configPath string) error {
	app := fx.New(
		config.Module(configPath),
		logging.Module(),
		otel.Module(),
		auth.Module(),
		catalog.Module(),
		workflow.Module(),
		grpcserver.Module(),
		httpserver.Module(),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

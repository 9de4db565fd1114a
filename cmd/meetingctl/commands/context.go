package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/internal/app"
	"github.com/johnquangdev/meeting-rag/pkg/config"
)

func loadConfig(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(cmd.String("env"))
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// openApp loads the env file named by --env and wires the application.
func openApp(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/johnquangdev/meeting-rag/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-rag/internal/usecase/qa"
)

// ProcessAction runs the pipeline on the audio file given as the argument.
func ProcessAction(ctx context.Context, cmd *cli.Command) error {
	audioPath := cmd.Args().First()
	if audioPath == "" {
		return fmt.Errorf("an audio file argument is required")
	}

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Config.ValidateCredentials(); err != nil {
		return err
	}

	result, location, err := a.Pipeline.Ingest(ctx, audioPath, cmd.String("id"))
	if err != nil {
		return err
	}
	return printJSON(output(cmd), presenter.ToMeetingResponse(result, location))
}

// AskAction answers --question from the meeting named by --id.
func AskAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.QA.Ask(ctx, qa.AskParams{
		MeetingID: cmd.String("id"),
		Question:  cmd.String("question"),
		TopK:      int(cmd.Int("top-k")),
	})
	if err != nil {
		return err
	}
	return printJSON(output(cmd), presenter.ToAskResponse(result))
}

// ShowAction prints a meeting's summary, or its transcript with --transcript.
func ShowAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.QA.Get(ctx, cmd.String("id"))
	if err != nil {
		return err
	}
	if cmd.Bool("transcript") {
		return printJSON(output(cmd), presenter.ToTranscriptResponse(result.Transcript))
	}
	return printJSON(output(cmd), presenter.ToMeetingResponse(result, a.Store.Location(result.MeetingID)))
}

// ListAction prints the ids of stored meetings, one per line.
func ListAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.QA.List(ctx)
	if err != nil {
		return err
	}
	w := output(cmd)
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// DeleteAction removes the meeting named by --id.
func DeleteAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id := cmd.String("id")
	if err := a.Pipeline.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(output(cmd), "✓ deleted %s\n", id)
	return nil
}

// MigrateAction applies the sql-migrate files in DB_MIGRATIONS_DIR.
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	n, err := database.Migrate(db, cfg.Database.MigrationsDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(output(cmd), "✓ applied %d migration(s)\n", n)
	return nil
}

// Package commands implements meetingctl, the command line front end to the
// meeting pipeline.
package commands

import (
	"github.com/urfave/cli/v3"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path of the env file to load",
		Value: ".env",
	}
}

func meetingFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Aliases:  []string{"m"},
		Usage:    "meeting id",
		Required: required,
	}
}

// Root returns the meetingctl command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "meetingctl",
		Usage: "process meeting recordings and ask questions about them",
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "diarize, transcribe, index and summarize an audio file",
				ArgsUsage: "<audio-file>",
				Flags: []cli.Flag{
					envFlag(),
					meetingFlag(false),
				},
				Action: ProcessAction,
			},
			{
				Name:  "ask",
				Usage: "answer a question from a processed meeting",
				Flags: []cli.Flag{
					envFlag(),
					meetingFlag(true),
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "question to answer",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "number of transcript chunks to retrieve (0 uses the configured default)",
					},
				},
				Action: AskAction,
			},
			{
				Name:  "show",
				Usage: "print a processed meeting",
				Flags: []cli.Flag{
					envFlag(),
					meetingFlag(true),
					&cli.BoolFlag{
						Name:  "transcript",
						Usage: "print the full transcript instead of the summary",
					},
				},
				Action: ShowAction,
			},
			{
				Name:   "list",
				Usage:  "list processed meetings",
				Flags:  []cli.Flag{envFlag()},
				Action: ListAction,
			},
			{
				Name:   "delete",
				Usage:  "remove a processed meeting",
				Flags:  []cli.Flag{envFlag(), meetingFlag(true)},
				Action: DeleteAction,
			},
			{
				Name:   "migrate",
				Usage:  "apply catalog database migrations",
				Flags:  []cli.Flag{envFlag()},
				Action: MigrateAction,
			},
		},
	}
}

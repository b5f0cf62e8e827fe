// Package main is the operator CLI: it reads and updates the report database
// and runs one-off analyses without the web server.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagDB       = "db"
	flagDetector = "detector"
	flagStatus   = "status"
	flagRange    = "range"
	flagOut      = "out"
	flagCamera   = "camera"
	flagWidth    = "width"
	flagHeight   = "height"
)

func main() {
	app := &cli.App{
		Name:  "potholectl",
		Usage: "inspect pothole reports and analyze frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagDB,
				Usage:   "database `FILE` (defaults to DB_PATH)",
				EnvVars: []string{"DB_PATH"},
			},
			&cli.StringFlag{
				Name:    flagDetector,
				Usage:   "detector backend `URL` (defaults to DETECTOR_URL)",
				EnvVars: []string{"DETECTOR_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "reports",
				Usage: "work with municipality reports",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list reports, newest first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagStatus, Value: "all", Usage: "all, pending, in-progress or completed"},
						},
						Action: listReportsAction,
					},
					{
						Name:      "set-status",
						Usage:     "move a report to a new status",
						ArgsUsage: "<report id> <status>",
						Action:    setStatusAction,
					},
					{
						Name:   "stats",
						Usage:  "count reports per status",
						Action: reportStatsAction,
					},
					{
						Name:  "map",
						Usage: "render the report map to a PNG file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagOut, Value: "reports-map.png", Usage: "output `FILE`"},
							&cli.IntFlag{Name: flagWidth, Value: 800},
							&cli.IntFlag{Name: flagHeight, Value: 500},
						},
						Action: mapAction,
					},
				},
			},
			{
				Name:   "summary",
				Usage:  "summarize the detection history",
				Action: summaryAction,
			},
			{
				Name:  "trend",
				Usage: "print the report trend for a range",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagRange, Value: "month", Usage: "week, month, quarter or year"},
				},
				Action: trendAction,
			},
			{
				Name:      "analyze",
				Usage:     "analyze an image or video file, or a camera frame",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagCamera, Value: -1, Usage: "grab from camera `ID` instead of a file"},
					&cli.StringFlag{Name: flagOut, Value: "annotated.png", Usage: "annotated output `FILE`"},
				},
				Action: analyzeAction,
			},
			{
				Name:   "status",
				Usage:  "probe the detector backend",
				Action: statusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

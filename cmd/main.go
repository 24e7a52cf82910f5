package main

import (
	"fmt"
	"log"
	"os"

	"github.com/iancoleman/strcase"
	"github.com/jaennil/guide_helper/backend/viewer/internal/app"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/config"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
	"github.com/urfave/cli/v2"
)

const (
	VIEWER_AT        string = `viewerAt`
	SETTINGS_BACKEND string = `settingsBackend`
	LATITUDE         string = `latitude`
	LONGITUDE        string = `longitude`
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "viewer"
	a.Usage = "Slippy map viewer with shareable locations"

	serve := &cli.Command{
		Name:   "serve",
		Usage:  "Run the viewer and its HTTP API",
		Flags:  serveFlags(),
		Action: serveAction,
	}

	a.Commands = []*cli.Command{
		serve,
		{
			Name:  "encode",
			Usage: "Encode a world location as a token",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: "x", Usage: "World X in [0, 1]", Required: true},
				&cli.Float64Flag{Name: "y", Usage: "World Y in [0, 1]", Required: true},
				&cli.Float64Flag{Name: "z", Usage: "Zoom in [0, 22]", Value: 0},
			},
			Action: func(c *cli.Context) error {
				token := location.Encode(location.Location{
					X: c.Float64("x"),
					Y: c.Float64("y"),
					Z: c.Float64("z"),
				})
				fmt.Fprintln(c.App.Writer, token)
				return nil
			},
		},
		{
			Name:      "decode",
			Usage:     "Decode a location token",
			ArgsUsage: "TOKEN",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one token", 2)
				}
				l, err := location.Decode(c.Args().First())
				if err != nil {
					return err
				}
				coords := mercator.FromWorld(l.X, l.Y)
				fmt.Fprintf(c.App.Writer, "x=%.7f y=%.7f z=%.4f\n%s\n", l.X, l.Y, l.Z, mercator.Format(coords))
				return nil
			},
		},
		{
			Name:  "coords",
			Usage: "Convert between geographic text and world coordinates",
			Subcommands: []*cli.Command{
				{
					Name:  "format",
					Usage: "Format a latitude and longitude as degree/minute/second text",
					Flags: []cli.Flag{
						&cli.Float64Flag{Name: LATITUDE, Aliases: []string{"lat"}, Required: true},
						&cli.Float64Flag{Name: LONGITUDE, Aliases: []string{"lon"}, Required: true},
					},
					Action: func(c *cli.Context) error {
						fmt.Fprintln(c.App.Writer, mercator.Format(mercator.Of(c.Float64(LATITUDE), c.Float64(LONGITUDE))))
						return nil
					},
				},
				{
					Name:      "parse",
					Usage:     "Parse degree/minute/second text into world coordinates",
					ArgsUsage: "TEXT",
					Action: func(c *cli.Context) error {
						if c.NArg() != 1 {
							return cli.Exit("expected the coordinates as a single argument", 2)
						}
						coords, err := mercator.Parse(c.Args().First())
						if err != nil {
							return err
						}
						x, y := mercator.ToWorld(coords)
						fmt.Fprintf(c.App.Writer, "latitude=%.6f longitude=%.6f x=%.7f y=%.7f\n", coords.Latitude, coords.Longitude, x, y)
						return nil
					},
				},
			},
		},
	}

	// Running without a command serves.
	a.Flags = serveFlags()
	a.Action = serveAction

	return a
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    VIEWER_AT,
			Aliases: []string{"at"},
			Usage:   "Location token to start from",
			EnvVars: []string{strcase.ToScreamingSnake(VIEWER_AT)},
		},
		&cli.StringFlag{
			Name:    SETTINGS_BACKEND,
			Usage:   "Settings store: memory, filesystem, sqlite or redis",
			EnvVars: []string{strcase.ToScreamingSnake(SETTINGS_BACKEND)},
		},
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if at := c.String(VIEWER_AT); at != "" {
		cfg.Viewer.At = at
	}
	if backend := c.String(SETTINGS_BACKEND); backend != "" {
		cfg.Settings.Backend = backend
	}

	app.Run(cfg)
	return nil
}

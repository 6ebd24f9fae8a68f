package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/hangxie/building-angles/cmd/run"
	"github.com/hangxie/building-angles/cmd/serve"
	"github.com/hangxie/building-angles/cmd/tile"
	"github.com/hangxie/building-angles/cmd/version"
	"github.com/hangxie/building-angles/internal/logger"
)

var cli struct {
	Debug            bool                         `help:"Log at debug level." default:"false"`
	Run              run.Cmd                      `cmd:"" default:"withargs" help:"Build corner angle histograms from OSM data (default command)."`
	Serve            serve.Cmd                    `cmd:"" help:"Serves polar plot tiles from a result file at /zoom/x/y.png."`
	Tile             tile.Cmd                     `cmd:"" help:"Prints the angle histogram of one tile from a result file."`
	ShellCompletions kongplete.InstallCompletions `cmd:"" help:"Install/uninstall shell completions"`
	Version          version.Cmd                  `cmd:"" help:"Show build version."`
}

func main() {
	// a missing .env is fine, environment and flags still apply
	_ = godotenv.Load()

	parser := kong.Must(
		&cli,
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Description("Counts building corner angles in OSM data per map tile, for full usage see https://github.com/hangxie/building-angles/blob/main/README.md"),
	)
	kongplete.Complete(parser, kongplete.WithPredictor("file", complete.PredictFiles("*")))

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	logger.Setup(cli.Debug)
	ctx.FatalIfErrorf(ctx.Run())
}

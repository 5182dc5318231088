package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/mfreitas/voxprep/internal/daemon"
	"github.com/mfreitas/voxprep/internal/paths"
)

func main() {
	dataDirFlag := flag.String("data-dir", "", "data directory (default ~/.voxprep)")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = paths.DefaultDataDir()
	}

	app := fx.New(
		daemon.Module(daemon.Params{DataDir: dataDir, ListenAddr: *listenFlag}),
	)

	app.Run()
}

package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-segmentation/cmd/segment/commands"
	"github.com/nvr-ai/go-segmentation/inference/backend"
	"github.com/nvr-ai/go-segmentation/pipeline"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

func main() {
	root := commands.NewRootCmd(commands.Deps{
		Version: Version,
		Commit:  Commit,
		NewLoader: func(cfg backend.Config) (pipeline.EngineLoader, error) {
			l, err := backend.NewLoader(cfg)
			if err != nil {
				return nil, err
			}
			return pipeline.EngineLoader(l), nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

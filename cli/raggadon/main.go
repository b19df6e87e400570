package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	raggadoncmder "github.com/papercomputeco/raggadon/cmd/raggadon"
	"github.com/papercomputeco/raggadon/pkg/utils"
)

func main() {
	cmd := raggadoncmder.NewRaggadonCmd()
	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(utils.Version),
		fang.WithCommit(utils.Sha),
	); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/Truja503/lampo/internal/cmd"
)

func main() {
	c := &cli.CLI{
		Name:    "lampod",
		Version: VersionString(),
		Args:    os.Args[1:],
		HelpFunc: cli.BasicHelpFunc("lampod"),
	}

	ui := &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Writer:      os.Stdout,
			Reader:      os.Stdin,
			ErrorWriter: os.Stderr,
		},
	}

	c.Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &cmd.ServeCommand{
				Ui:      ui,
				Version: VersionString(),
			}, nil
		},
		"rpc": func() (cli.Command, error) {
			return &cmd.RpcCommand{
				Ui: ui,
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &cmd.VersionCommand{
				Ui:      ui,
				Version: VersionString(),
				BuildInfo: &cmd.BuildInfo{
					GoVersion: strings.TrimPrefix(runtime.Version(), "go"),
					GoOS:      runtime.GOOS,
					GoArch:    runtime.GOARCH,
				},
			}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		ui.Error("Error: " + err.Error())
	}

	os.Exit(exitStatus)
}

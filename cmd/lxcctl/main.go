package main

import (
	"fmt"
	"os"

	"github.com/melih/lighthouse-lxc/internal/adapters/lxc"
	"github.com/melih/lighthouse-lxc/internal/config"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const usage = `LXC container manager

{{name}} drives the lxc-* tools through a typed facade. Every command
re-queries the engine; nothing is cached between invocations.`

func main() {
	app := cli.NewApp()
	app.Name = "lxcctl"
	app.Usage = usage
	app.Flags = config.Flags()
	app.Commands = []cli.Command{
		newListCmd(),
		newExistsCmd(),
		newStartCmd(),
		newStopCmd(),
		newDestroyCmd(),
		newInfoCmd(),
		newFreezeCmd(),
		newUnfreezeCmd(),
		newWaitCmd(),
		newCreateCmd(),
		newCheckconfigCmd(),
		newResetPasswordCmd(),
	}
	app.Before = func(context *cli.Context) error {
		return config.FromContext(context).SetupLogging(logrus.StandardLogger())
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// service builds the lxc adapter from the global flags.
func service(context *cli.Context) ports.ContainerService {
	cfg := config.FromContext(context)
	log := logrus.StandardLogger()
	return lxc.NewAdapter(lxc.NewExecRunner(cfg.BinDir, log), cfg.Adapter(), log)
}

// fatal prints the error's message and exits. Errors coming from the engine
// exit with 2 so scripts can tell them apart from usage mistakes.
func fatal(err error) {
	logrus.Error(err)
	fmt.Fprintln(os.Stderr, err)
	if domain.HasCode(err, domain.EngineInvocationFailed) {
		os.Exit(2)
	}
	os.Exit(1)
}

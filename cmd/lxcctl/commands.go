package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var errEmptyName = errors.New("container name cannot be empty")

func containerName(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", errEmptyName
	}
	return name, nil
}

// signalContext is cancelled on SIGINT/SIGTERM so that a hung engine
// process is killed with the command.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// nameAction wraps operations that only need the container name.
func nameAction(op func(ctx context.Context, c *cli.Context, name string) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		name, err := containerName(c)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return op(ctx, c, name)
	}
}

func newListCmd() cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "list containers",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "status, s",
				Usage: "only list containers that are active, frozen, running, stopped or nesting",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()
			names, err := service(c).List(ctx, domain.Filter(c.String("status")))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newExistsCmd() cli.Command {
	return cli.Command{
		Name:      "exists",
		Usage:     "exit 0 if the container is defined, 1 otherwise",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			ok, err := service(c).Exists(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				return cli.NewExitError("", 1)
			}
			return nil
		}),
	}
}

func newStartCmd() cli.Command {
	return cli.Command{
		Name:      "start",
		Usage:     "start a container in the background",
		ArgsUsage: `<container-name>`,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, f",
				Usage: "use an alternate configuration file",
			},
		},
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			return service(c).Start(ctx, name, domain.StartOptions{ConfigFile: c.String("config")})
		}),
	}
}

func newStopCmd() cli.Command {
	return cli.Command{
		Name:      "stop",
		Usage:     "stop a container",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			return service(c).Stop(ctx, name)
		}),
	}
}

func newDestroyCmd() cli.Command {
	return cli.Command{
		Name:      "destroy",
		Usage:     "stop and remove a container",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			return service(c).Destroy(ctx, name)
		}),
	}
}

func newInfoCmd() cli.Command {
	return cli.Command{
		Name:      "info",
		Usage:     "show container information",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			info, err := service(c).Info(ctx, name)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(info))
			for k := range info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %s\n", k, info[k])
			}
			return nil
		}),
	}
}

func newFreezeCmd() cli.Command {
	return cli.Command{
		Name:      "freeze",
		Usage:     "freeze all the container's processes",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			return service(c).Freeze(ctx, name)
		}),
	}
}

func newUnfreezeCmd() cli.Command {
	return cli.Command{
		Name:      "unfreeze",
		Usage:     "thaw a frozen container",
		ArgsUsage: `<container-name>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			return service(c).Unfreeze(ctx, name)
		}),
	}
}

func newWaitCmd() cli.Command {
	return cli.Command{
		Name:      "wait",
		Usage:     "block until the container reaches one of the given states",
		ArgsUsage: `<container-name>`,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "states, s",
				Usage: "state expression, e.g. 'STOPPED|RUNNING'",
			},
		},
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			states := c.String("states")
			n, err := service(c).Notify(ctx, name, states, func() {
				fmt.Printf("%s reached %s\n", name, states)
			})
			if err != nil {
				return err
			}
			<-n.Done()
			return n.Err()
		}),
	}
}

func newCreateCmd() cli.Command {
	return cli.Command{
		Name:  "create",
		Usage: "create a container",
		ArgsUsage: `<container-name> [-- template-options...]

Everything after "--" is handed to the template script.`,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, f",
				Usage: "initial configuration file",
			},
			cli.StringFlag{
				Name:  "template, t",
				Usage: "template name or path",
			},
			cli.StringFlag{
				Name:  "backing-store, B",
				Usage: "backing store type (dir, lvm, btrfs, zfs, ...)",
			},
		},
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			opts := domain.CreateOptions{
				ConfigFile:   c.String("config"),
				Template:     c.String("template"),
				BackingStore: c.String("backing-store"),
			}
			args := c.Args().Tail()
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			opts.TemplateOptions = args
			return service(c).Create(ctx, name, opts)
		}),
	}
}

func newCheckconfigCmd() cli.Command {
	return cli.Command{
		Name:  "checkconfig",
		Usage: "check the kernel configuration for LXC support",
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()
			lines, err := service(c).CheckConfig(ctx)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
}

func newResetPasswordCmd() cli.Command {
	return cli.Command{
		Name:      "reset-password",
		Usage:     "set a user's password inside the container rootfs",
		ArgsUsage: `<container-name> <username> <password>`,
		Action: nameAction(func(ctx context.Context, c *cli.Context, name string) error {
			if c.NArg() != 3 {
				return fmt.Errorf("expected <container-name> <username> <password>, got %d arguments", c.NArg())
			}
			return service(c).ResetPassword(ctx, name, c.Args().Get(1), c.Args().Get(2))
		}),
	}
}

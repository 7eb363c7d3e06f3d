package lxc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
)

const (
	lsBin          = "lxc-ls"
	startBin       = "lxc-start"
	stopBin        = "lxc-stop"
	destroyBin     = "lxc-destroy"
	infoBin        = "lxc-info"
	freezeBin      = "lxc-freeze"
	unfreezeBin    = "lxc-unfreeze"
	waitBin        = "lxc-wait"
	createBin      = "lxc-create"
	checkconfigBin = "lxc-checkconfig"
	chrootBin      = "chroot"
	chpasswdBin    = "chpasswd"
)

func listCmd(filter domain.Filter) Command {
	if filter.Valid() {
		return Command{Name: lsBin, Args: []string{"--" + string(filter)}}
	}
	return Command{Name: lsBin}
}

func startCmd(name string, opts domain.StartOptions) Command {
	args := []string{"-n", name, "-d"}
	if opts.ConfigFile != "" {
		args = append(args, "-f", opts.ConfigFile)
	}
	return Command{Name: startBin, Args: args}
}

func stopCmd(name string) Command {
	return Command{Name: stopBin, Args: []string{"-n", name}}
}

func destroyCmd(name string) Command {
	return Command{Name: destroyBin, Args: []string{"-f", "-n", name}}
}

func infoCmd(name string) Command {
	return Command{Name: infoBin, Args: []string{"-n", name, "-H"}}
}

func freezeCmd(name string) Command {
	return Command{Name: freezeBin, Args: []string{"-n", name}}
}

func unfreezeCmd(name string) Command {
	return Command{Name: unfreezeBin, Args: []string{"-n", name}}
}

func waitCmd(name, states string) Command {
	return Command{Name: waitBin, Args: []string{"-n", name, "-s", states}}
}

func createCmd(name string, opts domain.CreateOptions) Command {
	args := []string{"-n", name}
	if opts.ConfigFile != "" {
		args = append(args, "-f", opts.ConfigFile)
	}
	if opts.Template != "" {
		args = append(args, "-t", opts.Template)
	}
	if opts.BackingStore != "" {
		args = append(args, "-B", opts.BackingStore)
	}
	if len(opts.TemplateOptions) > 0 {
		args = append(args, "--")
		args = append(args, opts.TemplateOptions...)
	}
	return Command{Name: createBin, Args: args, DiscardOutput: true}
}

func checkconfigCmd() Command {
	return Command{Name: checkconfigBin}
}

// resetPasswordCmd feeds "user:password" to chpasswd inside the container
// rootfs. The credentials travel on stdin, never on the command line.
func resetPasswordCmd(lxcPath, name, username, password string) Command {
	rootfs := filepath.Join(lxcPath, name, "rootfs")
	return Command{
		Name:  chrootBin,
		Args:  []string{rootfs, chpasswdBin},
		Stdin: strings.NewReader(fmt.Sprintf("%s:%s\n", username, password)),
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"flag"
	"os"

	"grimm.is/scanwall/cmd"
	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/errors"
)

var Printer = cmd.Printer

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		Printer.Fprintf(os.Stderr, "%s %s: %v\n", brand.LowerName, os.Args[1], err)
		os.Exit(exitCode(err))
	}
}

func dispatch(sub string, args []string) error {
	switch sub {
	case "run":
		opts, err := parseRunFlags("run", args, true)
		if err != nil {
			return err
		}
		return cmd.RunMonitor(opts)
	case "start":
		opts, err := parseRunFlags("start", args, false)
		if err != nil {
			return err
		}
		return cmd.RunStart(opts)
	case "stop":
		return cmd.RunStop()
	case "decode":
		fs := flag.NewFlagSet("decode", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "print records as JSON")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cmd.RunDecode(context.Background(), fs.Arg(0), os.Stdout, *asJSON)
	case "check-config":
		fs := flag.NewFlagSet("check-config", flag.ContinueOnError)
		sample := fs.Bool("sample", false, "print an annotated default config instead")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *sample {
			return cmd.RunConfigSample(os.Stdout)
		}
		return cmd.RunConfigValidate(fs.Arg(0), os.Stdout)
	case "version", "-version", "--version":
		cmd.RunVersion(os.Stdout)
		return nil
	case "help", "-h", "-help", "--help":
		usage()
		return nil
	default:
		usage()
		return errors.Errorf(errors.KindValidation, "unknown command %q", sub)
	}
}

func parseRunFlags(name string, args []string, foreground bool) (cmd.RunOptions, error) {
	var o cmd.RunOptions
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&o.ConfigFile, "config", "", "config file (HCL, YAML or JSON)")
	fs.StringVar(&o.ProcFile, "proc", "", "connection table to poll")
	fs.DurationVar(&o.Interval, "interval", 0, "poll interval")
	fs.IntVar(&o.WindowSize, "window", 0, "snapshots kept in the detection window")
	threshold := fs.Int("threshold", -1, "distinct local sockets a peer may touch before it is blocked (0 flags any peer)")
	fs.StringVar(&o.Backend, "backend", "", "firewall backend: iptables, nftables or memory")
	fs.StringVar(&o.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&o.MetricsListen, "metrics-listen", "", "address for the Prometheus endpoint")
	fs.BoolVar(&o.DryRun, "dry-run", false, "detect and report without touching the firewall")
	fs.BoolVar(&o.NoColor, "no-color", false, "disable colored console output")
	fs.BoolVar(&o.NoMetrics, "no-metrics", false, "disable the Prometheus endpoint")
	if foreground {
		fs.BoolVar(&o.WritePID, "pidfile", false, "write a PID file for the stop command")
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if *threshold >= 0 {
		o.Threshold = threshold
	}
	if o.ConfigFile == "" && fs.NArg() > 0 {
		o.ConfigFile = fs.Arg(0)
	}
	return o, nil
}

func exitCode(err error) int {
	switch errors.GetKind(err) {
	case errors.KindValidation:
		return 2
	case errors.KindPermission:
		return 77
	default:
		return 1
	}
}

func usage() {
	Printer.Printf("%s - %s\n\n", brand.Name, brand.Description)
	Printer.Println("Usage:")
	Printer.Printf("  %s run [flags] [config]     poll in the foreground\n", brand.LowerName)
	Printer.Printf("  %s start [flags] [config]   run in the background\n", brand.LowerName)
	Printer.Printf("  %s stop                     stop the background monitor\n", brand.LowerName)
	Printer.Printf("  %s decode [-json] [file]    print established connections once\n", brand.LowerName)
	Printer.Printf("  %s check-config [-sample] file\n", brand.LowerName)
	Printer.Printf("  %s version\n", brand.LowerName)
}

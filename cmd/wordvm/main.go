// wordvm assembles, inspects and runs wordvm images.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/psilLang/wordvm/pkg/config"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every subcommand needs.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	log    commonlog.Logger
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: wordvm [-config file] [-v N] <command> [args]

Commands:
  run [-trace] [-max-steps N] [-stack a,b,..] <file>   Run a .wvs or .wvi file (@name loads from the store)
  asm [-o out.wvi] [-name N] <file.wvs>               Assemble to an image file
  disasm <file>                                       Print assemblable disassembly
  dump <file>                                         Print the debug dump
  demo                                                Build and trace the hello program
  store put|get|ls|rm ...                             Manage the image database
  batch [-n N] [-workers N] [-seed] <file>            Run N copies concurrently
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wordvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	cfgPath := fs.String("config", "", "Config file (default: nearest "+config.FileName+")")
	verbosity := fs.Int("v", -1, "Log verbosity (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		cfg *config.Config
		err error
	)
	if *cfgPath != "" {
		cfg, err = config.LoadFile(*cfgPath)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogFile())

	c := &cli{
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		log:    commonlog.GetLogger("wordvm"),
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "run":
		return c.cmdRun(cmdArgs)
	case "asm":
		return c.cmdAsm(cmdArgs)
	case "disasm":
		return c.cmdDisasm(cmdArgs)
	case "dump":
		return c.cmdDump(cmdArgs)
	case "demo":
		return c.cmdDemo(cmdArgs)
	case "store":
		return c.cmdStore(cmdArgs)
	case "batch":
		return c.cmdBatch(cmdArgs)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return 2
	}
}

// fail reports err and returns the exit status for it.
func (c *cli) fail(prefix string, err error) int {
	fmt.Fprintf(c.stderr, "%s: %v\n", prefix, err)
	return 1
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("wordvm "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/tagtmpl/cli/cmd"
	"github.com/ardnew/tagtmpl/pkg"
)

// ErrMetricsListen reports that the metrics endpoint could not be opened.
var ErrMetricsListen = cmd.NewError("listen for metrics")

// CLI is the top-level command-line interface for tagtmpl.
type CLI struct {
	Log    logConfig    `embed:"" group:"log"    prefix:"log-"`
	Engine engineConfig `embed:"" group:"engine"`
	Pprof  pprofConfig  `embed:"" group:"pprof"  prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit."`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render a template (default)"`
	Lint   cmd.Lint   `cmd:""                    help:"Check templates for syntax errors"`
	Funcs  cmd.Funcs  `cmd:""                    help:"List built-in functions"`
	Repl   cmd.Repl   `cmd:""                    help:"Interactive template preview"`
	Init   cmd.Init   `cmd:""                    help:"Write a configuration file from the current flags"`
}

// Run executes the CLI with the given arguments. The exit function is
// called by kong for --help, --version, and usage errors.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFilePath := configPath(configFile)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
		"version":            pkg.Name + " " + pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Engine.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logger flags take effect before kong reports anything.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{
			cli.Log.group(),
			cli.Engine.group(),
			cli.Pprof.group(),
		}),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			Tree:                true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(kong.JSON, configPath("config.json")),
		kong.Configuration(resolveYAML, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	engine, stopMetrics, err := cli.Engine.start(ctx)
	if err != nil {
		return err
	}
	defer stopMetrics()

	// No-op unless built with tag pprof and a mode is selected.
	defer cli.Pprof.start(ctx)()

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, engine)

	return ktx.Run(ctx)
}

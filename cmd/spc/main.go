package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/tangzhangming/singlepath/internal/config"
	"github.com/tangzhangming/singlepath/internal/errors"
	"github.com/tangzhangming/singlepath/internal/i18n"
	"github.com/tangzhangming/singlepath/internal/loader"
	"github.com/tangzhangming/singlepath/internal/module"
	"github.com/tangzhangming/singlepath/internal/pipeline"
	"github.com/tangzhangming/singlepath/internal/report"
)

const version = "0.1.0"

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "configuration file (default: nearest " + config.ConfigFileName + ")",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "development logging at debug level",
	}
	dualIssueFlag = &cli.BoolFlag{
		Name:  "dual-issue",
		Usage: "schedule for two issue slots",
	}
	compensationFlag = &cli.StringFlag{
		Name:  "compensation",
		Usage: "compensation algorithm: hybrid, opposite or counter",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "number of functions analysed concurrently",
	}
	langFlag = &cli.StringFlag{
		Name:    "lang",
		Usage:   "diagnostic language: en or zh",
		EnvVars: []string{"SPC_LANG"},
		Value:   "en",
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable coloured diagnostics",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "write the report as JSON",
	}
	schedulesFlag = &cli.BoolFlag{
		Name:  "schedules",
		Usage: "include per-block schedules in the table output",
	}
)

func main() {
	app := &cli.App{
		Name:    "spc",
		Usage:   "single-path constant-time transformation analyses",
		Version: version,
		Flags: []cli.Flag{
			configFlag,
			verboseFlag,
			dualIssueFlag,
			compensationFlag,
			workersFlag,
			langFlag,
			noColorFlag,
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "run the full pipeline on a module description",
				ArgsUsage: "<module.yaml|module.toml>",
				Flags:     []cli.Flag{jsonFlag, schedulesFlag},
				Action:    analyze,
			},
			{
				Name:      "schedule",
				Usage:     "schedule every block of a module description",
				ArgsUsage: "<module.yaml|module.toml>",
				Flags:     []cli.Flag{jsonFlag},
				Action:    schedule,
			},
			{
				Name:      "fingerprint",
				Usage:     "print the report digest, analysing twice to check it is stable",
				ArgsUsage: "<module.yaml|module.toml>",
				Action:    fingerprint,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session 一次命令执行所需的模块、配置与日志器
type session struct {
	path     string
	mod      *module.Module
	cfg      *config.Config
	log      *zap.Logger
	reporter *errors.Reporter
}

func newSession(ctx *cli.Context) (*session, error) {
	if ctx.NArg() != 1 {
		return nil, cli.Exit(fmt.Sprintf("usage: spc %s %s", ctx.Command.Name, ctx.Command.ArgsUsage), 2)
	}
	path := ctx.Args().First()

	c, err := loader.LoadConfig(ctx.String(configFlag.Name), path)
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(dualIssueFlag.Name) {
		c.DualIssue = ctx.Bool(dualIssueFlag.Name)
	}
	if ctx.IsSet(compensationFlag.Name) {
		c.Compensation = config.Compensation(ctx.String(compensationFlag.Name))
	}
	if ctx.IsSet(workersFlag.Name) {
		c.Workers = ctx.Int(workersFlag.Name)
	}
	verbose := ctx.Bool(verboseFlag.Name)
	if verbose {
		c.LogLevel = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	log, err := c.NewLogger(verbose)
	if err != nil {
		return nil, err
	}
	c.WithLogger(log)

	if err := i18n.SetLanguageFromString(ctx.String(langFlag.Name)); err != nil {
		return nil, err
	}
	if ctx.Bool(noColorFlag.Name) {
		errors.DisableColors()
	}

	mod, err := loader.Load(path)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &session{path: path, mod: mod, cfg: c, log: log, reporter: errors.NewReporter()}, nil
}

// run 分析模块并收集诊断
func (s *session) run(ctx context.Context, newPipeline func() *pipeline.PassManager) (*pipeline.Result, error) {
	res, err := pipeline.RunModule(ctx, s.mod, newPipeline, s.cfg)
	s.reporter.Report(err)
	if res != nil {
		for _, w := range res.Warnings() {
			s.reporter.Report(w)
		}
	}
	return res, err
}

// finish 输出诊断并同步日志
func (s *session) finish() error {
	s.reporter.Flush()
	_ = s.log.Sync()
	if s.reporter.HasErrors() {
		return cli.Exit(fmt.Sprintf("%s: %d error(s)", s.path, s.reporter.ErrorCount()), 1)
	}
	return nil
}

func analyze(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	res, err := s.run(ctx.Context, pipeline.CreateStandardPipeline)
	rep := report.Build(res, err)
	if ctx.Bool(jsonFlag.Name) {
		if err := report.JSON(os.Stdout, rep, true); err != nil {
			return err
		}
	} else {
		report.Table(os.Stdout, rep, ctx.Bool(schedulesFlag.Name))
	}
	return s.finish()
}

func schedule(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	res, err := s.run(ctx.Context, pipeline.CreateSchedulePipeline)
	rep := report.Build(res, err)
	if ctx.Bool(jsonFlag.Name) {
		if err := report.JSON(os.Stdout, rep, true); err != nil {
			return err
		}
	} else {
		for _, f := range rep.Functions {
			fmt.Printf("%s:\n", f.Name)
			for _, sched := range f.Schedules {
				fmt.Printf("  %s: %d bundles, %d no-ops\n", sched.Block, len(sched.Bundles), sched.NoOps)
			}
		}
	}
	return s.finish()
}

func fingerprint(ctx *cli.Context) error {
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	var digests [2]string
	for i := range digests {
		var (
			res    *pipeline.Result
			runErr error
		)
		if i == 0 {
			res, runErr = s.run(ctx.Context, pipeline.CreateStandardPipeline)
		} else {
			// 第二次运行只用于比较摘要，诊断不重复记录
			res, runErr = pipeline.RunModule(ctx.Context, s.mod, nil, s.cfg)
		}
		if digests[i], err = report.Fingerprint(report.Build(res, runErr)); err != nil {
			return err
		}
	}
	if digests[0] != digests[1] {
		return cli.Exit(fmt.Sprintf("analysis is not deterministic: %s != %s", digests[0], digests[1]), 1)
	}
	fmt.Println(digests[0])
	return s.finish()
}

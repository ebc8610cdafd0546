// Package cli 实现 pwait 的命令行
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zqzqsb/pwait/config"
	"github.com/zqzqsb/pwait/pkg/capability"
	"github.com/zqzqsb/pwait/pkg/log"
	"github.com/zqzqsb/pwait/ptracer"
	"github.com/zqzqsb/pwait/runner"
)

// RunnerFactory 为目标创建一次等待
type RunnerFactory func(target ptracer.Target, cfg config.Config, logger *slog.Logger) (runner.Runner, error)

// usageError 表示参数错误，退出码为 2
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// DefaultRunner 选择等待策略并创建 ptracer.Tracer
func DefaultRunner(target ptracer.Target, cfg config.Config, logger *slog.Logger) (runner.Runner, error) {
	s, err := ptracer.SelectStrategy(cfg.WaitStrategy)
	if err != nil {
		return nil, err
	}
	logger.Info("selected wait strategy", "strategy", s.Name(), "attach", ptracer.AttachMode)
	return ptracer.New(target, s, capability.NewPtrace(logger), logger), nil
}

// report 是 --output json 时的结果
type report struct {
	Pid        int    `json:"pid"`
	ExitCode   int    `json:"exit_code"`
	Signal     int    `json:"signal,omitempty"`
	Status     string `json:"status"`
	Strategy   string `json:"strategy"`
	AttachMode string `json:"attach_mode"`
	Iterations int    `json:"iterations"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// NewRootCmd 创建根命令，exitCode 在命令执行后给出进程退出码
func NewRootCmd(stdout, stderr io.Writer, newRunner RunnerFactory, exitCode *int) *cobra.Command {
	var cfgFile string
	v := config.New()

	cmd := &cobra.Command{
		Use:   "pwait [flags] <pid>",
		Short: "Wait for an arbitrary process to exit and report its exit code",
		Long: `pwait attaches to a running process with ptrace, waits until it begins
exiting and prints the exit code the kernel recorded for it.

Tracing a process you did not start requires CAP_SYS_PTRACE, for example:
  sudo setcap cap_sys_ptrace+p /usr/local/bin/pwait`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{fmt.Errorf("expected exactly one pid argument, got %d", len(args))}
			}
			target, err := ptracer.ParseTarget(args[0])
			if err != nil {
				return usageError{fmt.Errorf("first argument must be a positive numeric PID: %w", err)}
			}

			if err := config.ReadFile(v, cfgFile); err != nil {
				return usageError{err}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return usageError{err}
			}

			logger, err := log.Init(log.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat, Stderr: stderr})
			if err != nil {
				return usageError{err}
			}

			r, err := newRunner(target, cfg, logger)
			if err != nil {
				return usageError{err}
			}

			result := r.Run(cmd.Context())
			logger.Debug("result", "result", result.String())
			*exitCode = result.Status.ExitCode()

			if result.Status != runner.StatusNormal {
				logger.Error("pwait failed", "pid", result.Pid, "status", result.Status.String(), "error", result.Error)
				return nil
			}
			return printResult(stdout, cfg.Output, result)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml)")
	flags.StringP("wait-strategy", "w", "auto", "wait strategy: auto, waitpid or waitid")
	flags.String("log-format", "auto", "diagnostic format on stderr: auto, text or json")
	flags.BoolP("verbose", "v", false, "print every wait iteration")
	flags.StringP("output", "o", config.OutputText, "result format on stdout: text or json")

	_ = v.BindPFlag(config.KeyWaitStrategy, flags.Lookup("wait-strategy"))
	_ = v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = v.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	_ = v.BindPFlag(config.KeyOutput, flags.Lookup("output"))

	return cmd
}

func printResult(w io.Writer, output string, result runner.Result) error {
	if output != config.OutputJSON {
		_, err := fmt.Fprintln(w, result.Success())
		return err
	}
	return json.NewEncoder(w).Encode(report{
		Pid:        result.Pid,
		ExitCode:   result.ExitStatus,
		Signal:     result.Signal,
		Status:     "exited",
		Strategy:   result.Strategy,
		AttachMode: result.AttachMode,
		Iterations: result.Iterations,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	})
}

// Execute 运行命令并返回进程退出码
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, newRunner RunnerFactory) int {
	code := 0
	cmd := NewRootCmd(stdout, stderr, newRunner, &code)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(stderr, cmd.UsageString())
		return runner.StatusInvalidArgument.ExitCode()
	}
	return 1
}

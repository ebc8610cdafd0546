package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zqzqsb/pwait/config"
	"github.com/zqzqsb/pwait/ptracer"
	"github.com/zqzqsb/pwait/runner"
)

type fakeRunner struct {
	result runner.Result
}

func (f fakeRunner) Run(context.Context) runner.Result { return f.result }

// recorder 记录工厂是否被调用，以及收到的目标和配置
type recorder struct {
	calls  int
	target ptracer.Target
	cfg    config.Config
	result runner.Result
}

func (r *recorder) factory(target ptracer.Target, cfg config.Config, _ *slog.Logger) (runner.Runner, error) {
	r.calls++
	r.target = target
	r.cfg = cfg
	res := r.result
	res.Pid = target.Pid()
	return fakeRunner{result: res}, nil
}

func execute(t *testing.T, rec *recorder, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr, rec.factory)
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing pid", nil},
		{"non-numeric", []string{"abc"}},
		{"zero", []string{"0"}},
		{"negative after separator", []string{"--", "-5"}},
		{"negative", []string{"-5"}},
		{"extra argument", []string{"12", "13"}},
		{"unknown flag", []string{"--bogus", "12"}},
		{"bad strategy", []string{"--wait-strategy", "poll", "12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			code, stdout, stderr := execute(t, rec, tt.args...)
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "Usage:")
			assert.Zero(t, rec.calls, "no attach may be attempted on a usage error")
		})
	}
}

func TestSuccessLine(t *testing.T) {
	rec := &recorder{result: runner.Result{Status: runner.StatusNormal, ExitStatus: 42}}
	code, stdout, _ := execute(t, rec, "1234")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Process 1234 exited with code 42\n", stdout)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1234, rec.target.Pid())
}

func TestHexPid(t *testing.T) {
	rec := &recorder{result: runner.Result{Status: runner.StatusNormal}}
	code, stdout, _ := execute(t, rec, "0x10")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Process 16 exited with code 0\n", stdout)
}

func TestRuntimeFailures(t *testing.T) {
	for _, st := range []runner.Status{
		runner.StatusPrivilegeError,
		runner.StatusAttachError,
		runner.StatusWaitError,
		runner.StatusExtractionError,
		runner.StatusDetached,
	} {
		t.Run(st.String(), func(t *testing.T) {
			rec := &recorder{result: runner.Result{Status: st, Error: "boom"}}
			code, stdout, stderr := execute(t, rec, "--log-format", "text", "99999")
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout, "no success line on failure")
			assert.Contains(t, stderr, "boom")
		})
	}
}

func TestJSONOutput(t *testing.T) {
	rec := &recorder{result: runner.Result{
		Status:     runner.StatusNormal,
		ExitStatus: 7,
		Strategy:   "waitid",
		AttachMode: "seize",
		Iterations: 3,
		Elapsed:    1500 * time.Millisecond,
	}}
	code, stdout, _ := execute(t, rec, "-o", "json", "-w", "waitid", "321")
	require.Equal(t, 0, code)

	var got report
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, report{
		Pid:        321,
		ExitCode:   7,
		Status:     "exited",
		Strategy:   "waitid",
		AttachMode: "seize",
		Iterations: 3,
		ElapsedMS:  1500,
	}, got)
	assert.Equal(t, "waitid", rec.cfg.WaitStrategy)
}

func TestEnvConfig(t *testing.T) {
	t.Setenv("PWAIT_WAIT_STRATEGY", "waitpid")
	t.Setenv("PWAIT_VERBOSE", "1")
	rec := &recorder{result: runner.Result{Status: runner.StatusNormal}}
	code, _, _ := execute(t, rec, "5")
	assert.Equal(t, 0, code)
	assert.Equal(t, "waitpid", rec.cfg.WaitStrategy)
	assert.True(t, rec.cfg.Verbose)
}

func TestHelp(t *testing.T) {
	rec := &recorder{}
	code, stdout, _ := execute(t, rec, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "pwait [flags] <pid>")
	assert.Zero(t, rec.calls)
}

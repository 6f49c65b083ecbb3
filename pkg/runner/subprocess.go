package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/OpenMined/syft-rds/pkg/metrics"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Execution is a started job process. Wait must be called exactly once;
// Kill may be called from any goroutine to abort the run.
type Execution struct {
	cmd         *exec.Cmd
	cancel      context.CancelFunc
	handlers    []OutputHandler
	runtimeKind types.RuntimeKind
	startedAt   time.Time

	mu          sync.Mutex // serializes handler fan-out across streams
	wg          sync.WaitGroup
	stderrLines []string
	errorLines  []string
}

// start launches argv with the job's environment and wires the output
// streams to the handlers. PYTHONUNBUFFERED plus the -u interpreter
// flag keep the stream real-time.
func (b *base) start(ctx context.Context, cfg *types.JobConfig, argv []string, env []string) (*Execution, error) {
	runCtx := ctx
	var cancel context.CancelFunc = func() {}
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if env == nil {
		// A nil env means inherit; setting cmd.Env from a bare append
		// would strip PATH, HOME and the docker client variables.
		env = os.Environ()
	}
	cmd.Env = append(env, "PYTHONUNBUFFERED=1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	for _, h := range b.handlers {
		h.OnJobStart(cfg)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	b.logger.Debug().Strs("argv", argv).Int("pid", cmd.Process.Pid).Msg("process started")

	e := &Execution{
		cmd:         cmd,
		cancel:      cancel,
		handlers:    b.handlers,
		runtimeKind: cfg.Runtime.Kind,
		startedAt:   time.Now(),
	}
	e.wg.Add(2)
	go e.consume(stdout, StreamStdout)
	go e.consume(stderr, StreamStderr)
	return e, nil
}

// consume streams one pipe line by line into the handlers, tracking
// stderr severity as it goes.
func (e *Execution) consume(r io.Reader, stream Stream) {
	defer e.wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if stream == StreamStderr {
			e.recordStderr(line)
		}
		e.mu.Lock()
		for _, h := range e.handlers {
			h.OnJobProgress(stream, line)
		}
		e.mu.Unlock()
	}
}

func (e *Execution) recordStderr(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stderrLines = append(e.stderrLines, line)
	if lvl, _ := ParseLogLevel(line); failureLevel(lvl) {
		e.errorLines = append(e.errorLines, line)
	}
}

// Kill aborts the run. The pending Wait observes the termination.
func (e *Execution) Kill() error {
	if e.cmd.Process == nil {
		return nil
	}
	return e.cmd.Process.Kill()
}

// Wait blocks until the process exits and both streams are drained,
// then applies the severity rule: a zero exit with ERROR or CRITICAL
// stderr lines is demoted to return code 1, with those lines as the
// error message.
func (e *Execution) Wait() (*RunResult, error) {
	e.wg.Wait()

	rc := 0
	err := e.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		rc = exitErr.ExitCode()
	default:
		e.cancel()
		return nil, fmt.Errorf("failed waiting for process: %w", err)
	}
	e.cancel()

	res := &RunResult{ReturnCode: rc}
	e.mu.Lock()
	if rc != 0 {
		if len(e.stderrLines) > 0 {
			res.ErrorMessage = strings.Join(e.stderrLines, "\n") + "\n"
		}
	} else if len(e.errorLines) > 0 {
		res.ReturnCode = 1
		res.ErrorMessage = strings.Join(e.errorLines, "\n") + "\n"
	}
	e.mu.Unlock()

	for _, h := range e.handlers {
		h.OnJobCompletion(rc)
	}

	result := "finished"
	if res.Failed() {
		result = "failed"
	}
	metrics.JobRunsTotal.WithLabelValues(string(e.runtimeKind), result).Inc()
	metrics.JobRunDuration.WithLabelValues(string(e.runtimeKind)).Observe(time.Since(e.startedAt).Seconds())
	return res, nil
}

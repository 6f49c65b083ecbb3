package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Stream identifies which pipe a line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// OutputHandler receives the lifecycle of one job run. OnJobProgress is
// called once per line, in order within each stream.
type OutputHandler interface {
	OnJobStart(cfg *types.JobConfig)
	OnJobProgress(stream Stream, line string)
	OnJobCompletion(returnCode int)
}

// FileOutputHandler persists the run's output under the job logs dir as
// stdout.log and stderr.log.
type FileOutputHandler struct {
	mu     sync.Mutex
	stdout *os.File
	stderr *os.File
}

// NewFileOutputHandler returns a handler that opens its log files on
// job start.
func NewFileOutputHandler() *FileOutputHandler {
	return &FileOutputHandler{}
}

func (h *FileOutputHandler) OnJobStart(cfg *types.JobConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	logger := log.WithComponent("runner")
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		logger.Warn().Err(err).Msg("failed to create logs dir")
		return
	}
	var err error
	if h.stdout, err = os.Create(filepath.Join(cfg.LogsDir, "stdout.log")); err != nil {
		logger.Warn().Err(err).Msg("failed to create stdout log")
	}
	if h.stderr, err = os.Create(filepath.Join(cfg.LogsDir, "stderr.log")); err != nil {
		logger.Warn().Err(err).Msg("failed to create stderr log")
	}
}

func (h *FileOutputHandler) OnJobProgress(stream Stream, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.stdout
	if stream == StreamStderr {
		f = h.stderr
	}
	if f != nil {
		fmt.Fprintln(f, line)
	}
}

func (h *FileOutputHandler) OnJobCompletion(int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stdout != nil {
		h.stdout.Close()
		h.stdout = nil
	}
	if h.stderr != nil {
		h.stderr.Close()
		h.stderr = nil
	}
}

// LoggerOutputHandler mirrors job output onto the structured logger,
// honoring the severity markers found on stderr lines.
type LoggerOutputHandler struct {
	logger zerolog.Logger
}

// NewLoggerOutputHandler builds a handler logging under the given job id.
func NewLoggerOutputHandler(jobID string) *LoggerOutputHandler {
	return &LoggerOutputHandler{logger: log.WithJobID(jobID)}
}

func (h *LoggerOutputHandler) OnJobStart(cfg *types.JobConfig) {
	h.logger.Info().Str("entrypoint", cfg.Entrypoint()).Msg("job started")
}

func (h *LoggerOutputHandler) OnJobProgress(stream Stream, line string) {
	if stream == StreamStdout {
		h.logger.Info().Str("stream", string(stream)).Msg(line)
		return
	}
	lvl, msg := ParseLogLevel(line)
	event := h.logger.Info()
	switch lvl {
	case LevelDebug:
		event = h.logger.Debug()
	case LevelWarning:
		event = h.logger.Warn()
	case LevelError, LevelCritical:
		event = h.logger.Error()
	default:
		msg = line
	}
	event.Str("stream", string(stream)).Msg(msg)
}

func (h *LoggerOutputHandler) OnJobCompletion(returnCode int) {
	h.logger.Info().Int("return_code", returnCode).Msg("job finished")
}

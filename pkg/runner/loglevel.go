package runner

import "strings"

// LogLevel is the severity parsed from a stderr line.
type LogLevel string

const (
	LevelDebug    LogLevel = "DEBUG"
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
	// LevelUnknown marks lines with no recognizable severity.
	LevelUnknown LogLevel = ""
)

var knownLevels = []LogLevel{
	LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical,
}

// ParseLogLevel extracts a leading severity marker from a log line. It
// accepts the common prefix formats "LEVEL: msg", "LEVEL - msg",
// "[LEVEL] msg" and a bare "LEVEL msg", case insensitively. The second
// return is the message with the marker stripped; unrecognized lines
// come back whole with LevelUnknown.
func ParseLogLevel(line string) (LogLevel, string) {
	s := strings.TrimSpace(line)
	if s == "" {
		return LevelUnknown, ""
	}

	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end > 1 {
			if lvl := matchLevel(s[1:end]); lvl != LevelUnknown {
				return lvl, strings.TrimSpace(s[end+1:])
			}
		}
	}

	token := s
	rest := ""
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		token, rest = s[:i], s[i+1:]
	}
	token = strings.TrimSuffix(token, ":")
	if lvl := matchLevel(token); lvl != LevelUnknown {
		rest = strings.TrimSpace(rest)
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "-"))
		return lvl, rest
	}
	return LevelUnknown, line
}

func matchLevel(token string) LogLevel {
	upper := strings.ToUpper(strings.TrimSpace(token))
	for _, lvl := range knownLevels {
		if upper == string(lvl) {
			return lvl
		}
	}
	if upper == "WARN" {
		return LevelWarning
	}
	if upper == "FATAL" {
		return LevelCritical
	}
	return LevelUnknown
}

// failureLevel reports whether a severity fails an otherwise clean run.
func failureLevel(lvl LogLevel) bool {
	return lvl == LevelError || lvl == LevelCritical
}

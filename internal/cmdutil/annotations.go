package cmdutil

// AnnotationLogs is the cobra annotation key that selects where a command's
// logs go once config is loaded. Commands without it log to stderr and the
// log file.
const AnnotationLogs = "tokenscope/logs"

const (
	// LogsFileOnly keeps logs off the terminal, for full-screen commands.
	LogsFileOnly = "file"

	// LogsStderr skips the log file, for the worker child process.
	LogsStderr = "stderr"
)

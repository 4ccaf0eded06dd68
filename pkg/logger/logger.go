package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

// Level controls which messages are written.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu       sync.Mutex
	level    = INFO
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
	logFile  *os.File
)

func init() {
	setOutputs(os.Stdout, os.Stderr)
}

// InitLogger tees all output to stdout and the given file. An empty filename
// keeps console-only logging.
func InitLogger(filename string, lvl Level) error {
	mu.Lock()
	defer mu.Unlock()

	level = lvl
	if filename == "" {
		return nil
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	setOutputs(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f))
	return nil
}

// SetOutput redirects every level to w. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutputs(w, w)
}

// SetLevel changes the minimum level written.
func SetLevel(lvl Level) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
}

func setOutputs(out, errOut io.Writer) {
	flags := log.Ldate | log.Ltime
	debugLog = log.New(out, "DEBUG: ", flags)
	infoLog = log.New(out, "INFO: ", flags)
	warnLog = log.New(out, "WARN: ", flags)
	errorLog = log.New(errOut, "ERROR: ", flags)
}

// Close releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	setOutputs(os.Stdout, os.Stderr)
}

func write(lvl Level, l *log.Logger, format string, v ...interface{}) {
	mu.Lock()
	enabled := lvl >= level
	mu.Unlock()
	if enabled {
		l.Printf(format, v...)
	}
}

func Debugf(format string, v ...interface{}) { write(DEBUG, debugLog, format, v...) }

func Infof(format string, v ...interface{}) { write(INFO, infoLog, format, v...) }

func Warnf(format string, v ...interface{}) { write(WARN, warnLog, format, v...) }

func Errorf(format string, v ...interface{}) { write(ERROR, errorLog, format, v...) }

// ParseLevel maps "debug", "warn" and "error" to their levels; anything else is INFO.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN", "warning":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

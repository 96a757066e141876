// Package logging configures the process-wide logrus logger: stderr always,
// plus an optional lumberjack-rotated file sink when a log file is set.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Configure.
type Options struct {
	Level string // logrus level name; defaults to "info" on parse failure
	File  string // optional rotating log file path; empty disables file output
}

// Configure sets the logrus formatter, level, and output according to opts.
func Configure(opts Options) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return
	}

	fileSink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, fileSink))
}

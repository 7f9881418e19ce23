package logger

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Init configures the global logrus logger. Log lines always go to stderr so
// they never interleave with command output on stdout; file, when set, gets a
// copy in append mode. The returned closer releases the file.
func Init(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info': %v", level, err)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	writers := []io.Writer{os.Stderr}
	var closer io.Closer = nopCloser{}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
			return closer, err
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
		if err != nil {
			return closer, err
		}
		writers = append(writers, f)
		closer = f
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.Debug("Logger initialized")
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package qlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/logging"
)

// DirEnv is the environment variable that configures the directory qlog files are written to.
const DirEnv = "QLOGDIR"

// DefaultConnectionTracer creates a qlog file in the directory specified by the QLOGDIR environment variable.
// File names are <odcid>_<perspective>.sqlog.
// Returns nil if QLOGDIR is not set.
func DefaultConnectionTracer(p logging.Perspective, connID logging.ConnectionID) (*logging.ConnectionTracer, error) {
	dir := os.Getenv(DirEnv)
	if dir == "" {
		return nil, nil
	}
	return NewDirConnectionTracer(dir, p, connID)
}

// NewDirConnectionTracer creates a qlog file in dir.
// The directory is created if it doesn't exist yet.
func NewDirConnectionTracer(dir string, p logging.Perspective, connID logging.ConnectionID) (*logging.ConnectionTracer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating qlog dir %s: %w", dir, err)
	}
	label := "server"
	if p == logging.PerspectiveClient {
		label = "client"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sqlog", connectionID(connID), label))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating qlog file: %w", err)
	}
	return NewConnectionTracer(utils.NewBufferedWriteCloser(bufio.NewWriter(f), f), p, connID), nil
}

package cmd

import (
	"io"
	"os"

	"github.com/oneconcern/swarmtrie/pkg/cafs"
	"github.com/oneconcern/swarmtrie/pkg/dlogger"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"github.com/oneconcern/swarmtrie/pkg/metrics/exporters/zaplog"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

var errCmd = errors.New("command failed")

// openFs builds the content store from the loaded configuration.
// The returned function releases the store.
func openFs() (cafs.Fs, func(), error) {
	logger, err := dlogger.GetLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, errCmd.WrapMessage("failed to set log level: %v", err)
	}
	if cfg.Metrics {
		metrics.Init(metrics.WithExporter(zaplog.NewExporter(logger)))
		flags.root.m = metrics.EnsureMetrics("cli", &M{}).(*M)
	}

	opts, closer, err := cfg.Options(logger)
	if err != nil {
		return nil, nil, err
	}
	fs, err := cafs.New(append(opts, cafs.PinUploads(flags.content.pin))...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return fs, func() {
		if err := closer.Close(); err != nil {
			logger.Warn("closing chunk store", zap.Error(err))
		}
		_ = logger.Sync()
	}, nil
}

func parseReference(arg string) (swarm.Reference, error) {
	ref, err := swarm.ParseHexReference(arg)
	if err != nil {
		return nil, errCmd.WrapMessage("invalid reference %q: %v", arg, err)
	}
	return ref, nil
}

// openInput opens a file to upload. "-" stands for stdin.
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// writeOutput copies content to a file, or to w when no file is specified
func writeOutput(w io.Writer, name string, r io.Reader) error {
	if name == "" || name == "-" {
		_, err := io.Copy(w, r)
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

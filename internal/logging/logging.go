// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/parisxmas/formdesk/internal/gelf"
)

type Options struct {
	Level    string // trace, debug, info, warn, error
	Format   string // "console" for humans, anything else is JSON
	GELFAddr string // optional Graylog UDP input
	Service  string
	Output   io.Writer // defaults to os.Stderr
}

// New returns the root logger and a close function for its sinks. A GELF
// address that cannot be dialed is reported through the returned logger
// and otherwise ignored.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	closeFn := func() error { return nil }
	var gelfErr error
	if opts.GELFAddr != "" {
		w, err := gelf.New(opts.GELFAddr, opts.Service)
		if err != nil {
			gelfErr = err
		} else {
			out = zerolog.MultiLevelWriter(out, w)
			closeFn = w.Close
		}
	}

	log := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.Service).Logger()
	if gelfErr != nil {
		log.Warn().Err(gelfErr).Str("addr", opts.GELFAddr).Msg("GELF init failed")
	} else if opts.GELFAddr != "" {
		log.Info().Str("addr", opts.GELFAddr).Msg("GELF logging enabled")
	}
	return log, closeFn, nil
}

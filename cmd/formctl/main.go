// Command formctl manages forms and submissions from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/parisxmas/formdesk/internal/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "formctl: .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "formctl:", describe(err))
		os.Exit(1)
	}
}

// describe renders gateway errors without their package prefix.
func describe(err error) string {
	var (
		nf *gateway.NotFoundError
		ve *gateway.ValidationError
		ne *gateway.NetworkError
	)
	switch {
	case errors.As(err, &nf):
		return "not found: " + nf.Message
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ne):
		return "cannot reach server: " + ne.Err.Error()
	}
	return err.Error()
}

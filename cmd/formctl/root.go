package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/parisxmas/formdesk/internal/gateway"
)

const defaultURL = "http://localhost:8080/api"

type cli struct {
	out    io.Writer
	url    string
	token  string
	apiKey string
}

func (c *cli) client() *gateway.Client {
	return gateway.New(gateway.Session{BaseURL: c.url, Token: c.token, APIKey: c.apiKey})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "formctl",
		Short: "Manage forms and submissions",
		Long: `formctl talks to a formdesk server.

The session comes from --url, --token and --api-key, or from
FORMDESK_URL, FORMDESK_TOKEN and FORMDESK_API_KEY (also read from .env).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.url, "url", envOr("FORMDESK_URL", defaultURL), "API base URL")
	root.PersistentFlags().StringVar(&c.token, "token", os.Getenv("FORMDESK_TOKEN"), "session token")
	root.PersistentFlags().StringVar(&c.apiKey, "api-key", os.Getenv("FORMDESK_API_KEY"), "account API key")

	root.AddCommand(c.formsCmd(), c.submissionsCmd())
	return root
}

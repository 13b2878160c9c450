// Command folio is a terminal client for the portfolio simulation backend.
// It places simulated orders against a locally cached balance/holdings view,
// talks to the backend chat agents and serves the order journal dashboard.
//
// Usage:
//
//	folio setup                          write a config file interactively
//	folio trade --symbol AAPL --side buy --qty 3
//	folio chat --agent market
//	folio username
//	folio dashboard
//
// The bearer token is read from FOLIO_TOKEN (or the variable named by api.token_env),
// optionally loaded from a .env file.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	exitError       = 1
	exitAuthExpired = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			fmt.Fprintln(os.Stderr, "Your session has expired. Please sign in again and restart folio.")
			os.Exit(exitAuthExpired)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitError)
	}
}

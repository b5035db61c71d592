// Package main provides a CLI for manual registry lookups against the real
// authorities. Exit codes follow grep conventions: 0 found, 1 not found,
// 2 failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"registra/internal/platform/config"
	"registra/internal/registry/authority"
	"registra/internal/registry/authority/ibanapi"
	"registra/internal/registry/authority/mf"
	"registra/internal/registry/authority/nbp"
	"registra/internal/registry/authority/regon"
	"registra/internal/registry/authority/vies"
	"registra/internal/registry/models"
	"registra/internal/registry/service"
	"registra/internal/registry/store"
)

const (
	exitFound    = 0
	exitNotFound = 1
	exitFailure  = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitFailure)
	}

	flags := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	timeout := flags.Duration("timeout", 15*time.Second, "overall command timeout")
	jsonOut := flags.Bool("json", false, "print the full record as JSON")

	command := os.Args[1]
	_ = flags.Parse(os.Args[2:])
	args := flags.Args()

	svc := buildService()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "company":
		requireArgs(args, 1, "regctl company <nip-or-regon>")
		os.Exit(runCompany(ctx, svc, args[0], *jsonOut))
	case "bank":
		requireArgs(args, 1, "regctl bank <iban>")
		result, err := svc.BankByIBAN(ctx, args[0], "")
		os.Exit(report(result, err, *jsonOut))
	case "vat":
		requireArgs(args, 2, "regctl vat <country-code> <number>")
		result, err := svc.VAT(ctx, args[0], args[1])
		os.Exit(report(result, err, *jsonOut))
	case "rate":
		requireArgs(args, 2, "regctl rate <table> <code>")
		result, err := svc.Rate(ctx, args[0], args[1], "")
		os.Exit(report(result, err, *jsonOut))
	case "check":
		requireArgs(args, 1, "regctl check <nip>")
		os.Exit(runCheck(ctx, svc, args[0], *jsonOut))
	default:
		printUsage()
		os.Exit(exitFailure)
	}
}

// runCompany routes 10-digit identifiers to the white list and 9/14-digit
// ones to BIR.
func runCompany(ctx context.Context, svc *service.Service, identifier string, jsonOut bool) int {
	var result *models.CompanyLookup
	var err error
	if len(stripSeparators(identifier)) == 10 {
		result, err = svc.CompanyByNIP(ctx, identifier)
	} else {
		result, err = svc.CompanyByREGON(ctx, identifier)
	}
	return report(result, err, jsonOut)
}

// runCheck resolves the company and its EU VAT registration in parallel.
// Found means both answered positively.
func runCheck(ctx context.Context, svc *service.Service, nip string, jsonOut bool) int {
	var company *models.CompanyLookup
	var vat *models.VATLookup

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		company, err = svc.CompanyByNIP(gctx, nip)
		return err
	})
	g.Go(func() error {
		var err error
		vat, err = svc.VAT(gctx, "PL", nip)
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFailure
	}

	if jsonOut {
		printJSON(map[string]any{"company": company, "vat": vat})
	} else {
		fmt.Printf("company: %s\n", company.Status)
		if company.Found() {
			fmt.Printf("  name: %s\n", company.Record.Name)
		}
		fmt.Printf("vat: %s\n", vat.Status)
		if vat.Found() {
			fmt.Printf("  valid: %t\n", vat.Record.Valid)
		}
	}

	if company.Found() && vat.Found() && vat.Record.Valid {
		return exitFound
	}
	return exitNotFound
}

// report prints a lookup outcome and maps it to an exit code.
func report[T any](result *models.Lookup[T], err error, jsonOut bool) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFailure
	}
	if jsonOut {
		printJSON(result)
	} else {
		fmt.Printf("status: %s (authority %s, checked %s)\n",
			result.Status, result.Authority, result.CheckedAt.Format(time.RFC3339))
		if result.Found() {
			printJSON(result.Record)
		}
	}
	if result.Found() {
		return exitFound
	}
	return exitNotFound
}

func buildService() *service.Service {
	cfg := config.FromEnv()
	connectors := []authority.Connector{
		mf.New(cfg.Authorities.MFBaseURL, cfg.Authorities.CallTimeout),
		regon.New(cfg.Authorities.BIRBaseURL, cfg.Authorities.BIRAPIKey, cfg.Authorities.CallTimeout),
		vies.New(cfg.Authorities.VIESBaseURL, cfg.Authorities.CallTimeout),
		nbp.New(cfg.Authorities.NBPBaseURL, cfg.Authorities.CallTimeout),
		ibanapi.New(cfg.Authorities.IBANAPIBaseURL, cfg.Authorities.IBANAPIKey, cfg.Authorities.CallTimeout),
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return service.New(store.NewInMemoryCache(), connectors, service.WithLogger(logger))
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitFailure)
	}
	fmt.Println(string(out))
}

func stripSeparators(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage:", usage)
		os.Exit(exitFailure)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `regctl - registry lookup tool

Usage:
  regctl company <nip-or-regon>   resolve a company (MF white list or BIR)
  regctl bank <iban>              resolve the issuing bank of an IBAN
  regctl vat <cc> <number>        check an EU VAT registration via VIES
  regctl rate <table> <code>      fetch an NBP mid rate
  regctl check <nip>              company + VAT registration in parallel

Flags (after the command):
  -timeout duration   overall command timeout (default 15s)
  -json               print the full record as JSON

Exit codes: 0 found, 1 not found, 2 failure.`)
}

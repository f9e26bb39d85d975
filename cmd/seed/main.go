// Command seed creates an admin account, or promotes an existing account
// to admin, in the configured store.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"vsgifts-api/internal/factory"
	"vsgifts-api/internal/models"
	"vsgifts-api/internal/service"
	"vsgifts-api/internal/util"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

type options struct {
	email    string
	name     string
	password string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.email, "email", "", "admin email (required)")
	fs.StringVar(&opts.name, "name", "Admin", "display name for a new account")
	fs.StringVar(&opts.password, "password", "", "password for a new account; prompted when empty")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.email == "" {
		fs.Usage()
		return nil, errors.New("--email is required")
	}
	return opts, nil
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Admin password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(w, "Confirm password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

// adminSeeder is the slice of the account service the seed needs.
type adminSeeder interface {
	FindAccount(ctx context.Context, email string) (*models.Account, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (*models.Account, bool, error)
}

func run(ctx context.Context, admins adminSeeder, opts *options, stdout, stderr io.Writer) error {
	// Promotion keeps the stored password, so only a new account needs one.
	password := opts.password
	if password == "" {
		_, err := admins.FindAccount(ctx, opts.email)
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			if password, err = promptPassword(stderr); err != nil {
				return err
			}
		case err != nil:
			return err
		}
	}

	account, created, err := admins.EnsureAdmin(ctx, opts.name, opts.email, password)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	verb := "Promoted"
	if created {
		verb = "Created"
	}
	fmt.Fprintf(stdout, "%s admin %s (%s)\n", verb, account.Email, account.ID)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = run(ctx, f.ServiceFactory().AccountService(), opts, os.Stdout, os.Stderr)
	cancel()
	f.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

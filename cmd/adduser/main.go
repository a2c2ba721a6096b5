package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/familyspend/ExpenseTracker/internal/config"
	database "github.com/familyspend/ExpenseTracker/internal/db"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

// openUsers connects the user service to the configured database. The
// returned func releases the connection.
var openUsers = func(ctx context.Context, configPath string) (user.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := log.Discard()
	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	dbService, err := database.NewDBService(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	service := user.NewUserService(user.NewUserRepository(dbService.DB), user.NewCredentials(cfg.Security.BcryptCost), logger)
	return service, func() { _ = dbService.Close() }, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name (defaults to the email local part)")
	role := fs.String("role", user.RoleUser, "Role: user or admin")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	configPath := fs.String("config", "", "Path to a YAML config file (optional)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-role user|admin] [-password <password>] [-config <path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}
	if *name == "" {
		*name, _, _ = strings.Cut(*email, "@")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	ctx := context.Background()
	users, closeDB, err := openUsers(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeDB()

	created, err := users.CreateWithRole(ctx, user.RegisterInput{Email: *email, Password: password, Name: *name}, *role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s (role %s)\n", created.Email, created.ID, created.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

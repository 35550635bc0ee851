package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ohmage/internal/config"
	"ohmage/internal/infra/db"
	"ohmage/internal/usecase"
)

func runUserCreate(args []string) int {
	fs := flag.NewFlagSet("user create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var username string
	var password string
	var email string

	fs.StringVar(&username, "username", "", "username")
	fs.StringVar(&password, "password", "", "password")
	fs.StringVar(&email, "email", "", "email address")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "user create requires --username and --password")
		return 1
	}

	cfg := config.FromEnv()
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 1
	}

	uc := &usecase.CreateUser{
		Users:      db.NewUserRepository(store.DB),
		BcryptCost: cfg.BcryptCost,
	}
	resp, err := uc.Execute(context.Background(), usecase.CreateUserRequest{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		return 1
	}

	fmt.Printf("created user %s\n", resp.User.Username)
	return 0
}

func openStore(cfg config.Config) (*db.Store, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN must be set")
	}
	return db.NewStore(cfg)
}

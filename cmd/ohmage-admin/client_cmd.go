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

func runClientCreate(args []string) int {
	fs := flag.NewFlagSet("client create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var name string
	var owner string
	var description string

	fs.StringVar(&name, "name", "", "client display name")
	fs.StringVar(&owner, "owner", "", "owning username")
	fs.StringVar(&description, "description", "", "client description")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if name == "" || owner == "" {
		fmt.Fprintln(os.Stderr, "client create requires --name and --owner")
		return 1
	}

	cfg := config.FromEnv()
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 1
	}

	uc := &usecase.RegisterClient{
		Clients:    db.NewClientRepository(store.DB),
		BcryptCost: cfg.BcryptCost,
	}
	resp, err := uc.Execute(context.Background(), usecase.RegisterClientRequest{
		Name:        name,
		Description: description,
		Owner:       owner,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "register client: %v\n", err)
		return 1
	}

	// The plaintext secret is printed exactly once; only its hash is stored.
	fmt.Printf("client_id: %s\n", resp.Client.ID)
	fmt.Printf("client_secret: %s\n", resp.Secret)
	return 0
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "user":
		if len(args) >= 3 && args[2] == "create" {
			return runUserCreate(args[3:])
		}
	case "client":
		if len(args) >= 3 && args[2] == "create" {
			return runClientCreate(args[3:])
		}
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "ohmage-admin"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s user create --username <name> --password <password> [--email <address>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s client create --name <name> --owner <username> [--description <text>]\n", name)
}

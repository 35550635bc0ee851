// Package main is the ohmage-admin operator CLI. It talks straight to the
// configured database, bypassing the HTTP surface, for bootstrap tasks such
// as creating the first user or registering a client.
package main

import "os"

func main() {
	os.Exit(run(os.Args))
}

// Package main prints the stored form of a credential so rows can be seeded or
// checked by hand without running the server.
//
//	hash key              generate a new API key and print it with its hash
//	hash key <raw>        print the hash of an existing API key
//	hash password <text>  print a bcrypt hash of a password
//
// API keys, challenge keys and reset keys share the same SHA-256 hash format,
// so "hash key <raw>" also locates a verification challenge or reset row.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goaltracker/goaltracker/internal/auth"
)

const usage = "usage: hash key [raw] | hash password <text>"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "key":
		raw := ""
		if len(args) > 1 {
			raw = args[1]
		} else {
			var err error
			if raw, err = auth.GenerateKey(); err != nil {
				return err
			}
			fmt.Println("key: ", raw)
		}
		fmt.Println("hash:", auth.HashKey(raw))
	case "password":
		if len(args) < 2 {
			return errors.New(usage)
		}
		if !auth.PasswordPolicy(args[1]) {
			fmt.Fprintln(os.Stderr, "warning: password does not meet the policy and would be rejected by the API")
		}
		hash, err := auth.HashPassword(args[1])
		if err != nil {
			return err
		}
		fmt.Println(hash)
	default:
		return errors.New(usage)
	}
	return nil
}

//go:build ignore

// Prints a bcrypt hash suitable for OPERATOR_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const operatorHashCost = 12

func main() {
	var password string
	switch {
	case len(os.Args) >= 2:
		password = os.Args[1]
	default:
		// Reading stdin keeps the password out of shell history.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go [password] (or pipe it on stdin)\n")
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		fmt.Fprintln(os.Stderr, "Error: empty password")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), operatorHashCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
}

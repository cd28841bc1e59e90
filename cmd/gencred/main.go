// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package main implements gencred, a helper that bcrypt-hashes the dev
// override credential for auth.dev_token_hash:
//
//	gencred my-shared-token
//	CAMPUSATLAS_AUTH__DEV_TOKEN_HASH='$2a$10$...'
package main

import (
	"fmt"
	"os"

	"github.com/campusatlas/campusatlas/internal/auth"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: gencred <token>")
		os.Exit(2)
	}

	hash, err := auth.HashOverrideToken(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "gencred: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("CAMPUSATLAS_AUTH__DEV_TOKEN_HASH='%s'\n", hash)
}

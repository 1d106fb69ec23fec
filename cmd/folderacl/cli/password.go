// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrPasswordMismatch is returned by PromptNewPassword when the two
// entries differ.
var ErrPasswordMismatch = errors.New("passwords do not match")

// PromptPassword prints prompt to stderr and reads a password from
// stdin with echo disabled. When stdin is not a terminal (piped
// input) it reads a single line instead.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm prints prompt to stderr and reads one line from stdin.
// Only the exact answer "yes" confirms.
func Confirm(prompt string) (bool, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(line) == "yes", nil
}

// PromptNewPassword prompts twice and verifies both entries match.
func PromptNewPassword() (string, error) {
	password, err := PromptPassword("New password: ")
	if err != nil {
		return "", err
	}
	confirm, err := PromptPassword("Retype password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "API key commands",
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the bcrypt hash of an API key for auth.api_key_hash",
	RunE:  runAPIKeyHash,
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random API key and its hash",
	RunE:  runAPIKeyGenerate,
}

var apikeyValue string

const minAPIKeyLength = 16

func init() {
	apikeyHashCmd.Flags().StringVar(&apikeyValue, "key", "", "API key (prompted if not provided)")

	apikeyCmd.AddCommand(apikeyHashCmd, apikeyGenerateCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeyHash(cmd *cobra.Command, args []string) error {
	key := apikeyValue
	if key == "" {
		fmt.Fprint(os.Stderr, "Enter API key: ")
		keyBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		key = string(keyBytes)

		fmt.Fprint(os.Stderr, "Confirm API key: ")
		keyBytes2, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if key != string(keyBytes2) {
			return fmt.Errorf("keys do not match")
		}
	}

	hash, err := hashAPIKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runAPIKeyGenerate(cmd *cobra.Command, args []string) error {
	key := generateRandomString(32)
	hash, err := hashAPIKey(key)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "API key:      %s\n", key)
	fmt.Fprintf(out, "api_key_hash: %s\n", hash)
	return nil
}

func hashAPIKey(key string) (string, error) {
	if len(key) < minAPIKeyLength {
		return "", fmt.Errorf("API key must be at least %d characters", minAPIKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

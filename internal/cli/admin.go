package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// minPasswordLength is enforced when hashing a new admin password.
const minPasswordLength = 8

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage dashboard access",
}

var adminHashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a dashboard password",
	Long: `Prompt for a dashboard password and print its bcrypt hash.

Put the hash in admin.password_hash (studybuddy.toml) or
STUDYBUDDY_ADMIN_PASSWORD_HASH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		hash, err := hashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// readPassword reads a password from stdin without echoing
var readPassword = func(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

func init() {
	adminCmd.AddCommand(adminHashPasswordCmd)
}

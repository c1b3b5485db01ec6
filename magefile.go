//go:build mage

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build builds StudyBuddy for Linux with Green Tea GC
func Build() error {
	fmt.Println("Building StudyBuddy for Linux with Go 1.25 + Green Tea GC...")
	env := map[string]string{
		"GOOS":         "linux",
		"GOARCH":       "amd64",
		"GOEXPERIMENT": "greenteagc",
		"CGO_ENABLED":  "0",
	}
	return sh.RunWith(env, "go", "build", "-o", "studybuddy-linux-amd64", "./cmd/studybuddy")
}

// BuildLocal builds StudyBuddy for the current platform
func BuildLocal() error {
	fmt.Printf("Building StudyBuddy for %s/%s...\n", runtime.GOOS, runtime.GOARCH)
	return sh.Run("go", "build", "-o", "studybuddy", "./cmd/studybuddy")
}

// Test runs unit tests
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-race", "./...")
}

// Integration runs the PostgreSQL-backed tests (needs DATABASE_URL)
func Integration() error {
	if os.Getenv("DATABASE_URL") == "" {
		return fmt.Errorf("DATABASE_URL must point at a disposable PostgreSQL server")
	}
	fmt.Println("Running integration tests...")
	return sh.Run("go", "test", "-tags", "integration", "./...")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning build artifacts...")
	_ = os.Remove("studybuddy")
	_ = os.Remove("studybuddy-linux-amd64")
	return nil
}

// Migrate applies pending migrations to DATABASE_URL
func Migrate() error {
	mg.Deps(BuildLocal)
	return sh.RunV("./studybuddy", "migrate", "up")
}

// Update upgrades all Go dependencies
func Update() error {
	fmt.Println("Updating dependencies...")
	if err := sh.Run("go", "get", "-u", "./..."); err != nil {
		return err
	}
	return sh.Run("go", "mod", "tidy")
}

// Fmt runs gofmt on all Go files
func Fmt() error {
	fmt.Println("Formatting code...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet on all Go files
func Vet() error {
	fmt.Println("Vetting code...")
	return sh.Run("go", "vet", "./...")
}

// Deps downloads dependencies
func Deps() error {
	fmt.Println("Downloading dependencies...")
	return sh.Run("go", "mod", "download")
}

// CI runs all checks for continuous integration
func CI() error {
	mg.SerialDeps(Deps, Fmt, Vet, Test)
	fmt.Println("All CI checks passed!")
	return nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

// releaseRepository is the GitHub repository releases are published to.
const releaseRepository = "seuros/studybuddy"

var (
	selfUpgradeRequested bool
	selfUpgradeCheckOnly bool
	selfUpgradeAutoYes   bool
)

// Release lookups, replaced in tests.
var (
	detectLatestRelease = selfupdate.DetectLatest
	applyRelease        = selfupdate.UpdateTo
	exitAfterUpgrade    = os.Exit
)

func setupSelfUpgrade() {
	RootCmd.PersistentFlags().BoolVar(&selfUpgradeRequested, "self-upgrade", false, "Upgrade StudyBuddy to the latest release and exit")
	RootCmd.PersistentFlags().BoolVar(&selfUpgradeCheckOnly, "self-upgrade-check", false, "Only check whether a newer StudyBuddy release is available")
	RootCmd.PersistentFlags().BoolVar(&selfUpgradeAutoYes, "self-upgrade-yes", false, "Skip confirmation prompts when running --self-upgrade")

	existingPreRun := RootCmd.PersistentPreRunE
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if existingPreRun != nil {
			if err := existingPreRun(cmd, args); err != nil {
				return err
			}
		}
		if !selfUpgradeRequested && !selfUpgradeCheckOnly {
			return nil
		}
		if err := runSelfUpgrade(os.Stdout, os.Stdin, selfUpgradeCheckOnly, selfUpgradeAutoYes); err != nil {
			return err
		}
		exitAfterUpgrade(0)
		return nil
	}
}

func currentVersion() (semver.Version, error) {
	versionStr := strings.TrimSpace(strings.TrimPrefix(Version, "v"))
	if versionStr == "" || versionStr == "dev" {
		return semver.Version{}, errors.New("self-upgrade is only available for release builds")
	}
	current, err := semver.Parse(versionStr)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid current version %q: %w", Version, err)
	}
	return current, nil
}

func runSelfUpgrade(out io.Writer, in io.Reader, checkOnly, autoYes bool) error {
	current, err := currentVersion()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Current version: v%s\n", current)

	latest, found, err := detectLatestRelease(releaseRepository)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return errors.New("no releases found for StudyBuddy")
	}
	_, _ = fmt.Fprintf(out, "Latest release: v%s\n", latest.Version)

	if !latest.Version.GT(current) {
		_, _ = fmt.Fprintln(out, "StudyBuddy is already up to date")
		return nil
	}
	_, _ = fmt.Fprintf(out, "New release found! v%s --> v%s\n", current, latest.Version)
	if checkOnly {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine executable path: %w", err)
	}
	_, _ = fmt.Fprintf(out, "  * Current exe: %q\n", exe)
	_, _ = fmt.Fprintf(out, "  * Target OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if latest.AssetURL != "" {
		_, _ = fmt.Fprintf(out, "  * Download URL: %s\n", latest.AssetURL)
	}

	if !autoYes {
		_, _ = fmt.Fprint(out, "Replace the current binary? [Y/n] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "" && response != "y" && response != "yes" {
			_, _ = fmt.Fprintln(out, "Update cancelled.")
			return nil
		}
	}

	if err := applyRelease(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("self-upgrade failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Updated StudyBuddy to v%s\n", latest.Version)
	return nil
}

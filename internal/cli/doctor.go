package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/seuros/studybuddy/internal/config"
	"github.com/seuros/studybuddy/internal/database"
)

// minPostgresMajor is the oldest server the schema is tested against.
const minPostgresMajor = 14

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the StudyBuddy installation",
	Long: `Run health checks on the StudyBuddy installation.

Checks performed:
  - Data directory writable (local stores)
  - Admin login configured
  - Database connection, PostgreSQL version and migrations (postgres stores)
  - Materialized views exist (postgres analytics)
  - Redis reachable (redis progress store)

Example:
  studybuddy doctor
  studybuddy doctor --json`,
	RunE: runDoctor,
}

type CheckResult struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

var requiredMatViews = []string{
	database.DailyEventCountsView,
}

func checkDataDirectory(cfg *config.Config) CheckResult {
	const name = "Data Directory Writable"
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return CheckResult{Name: name, Error: err.Error(), Suggestion: "Ensure DATA_DIR can be created"}
	}
	testFile := filepath.Join(cfg.DataDir, ".studybuddy-write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return CheckResult{Name: name, Error: err.Error(), Suggestion: "Ensure DATA_DIR has write permissions"}
	}
	_ = os.Remove(testFile)
	return CheckResult{Name: name, Pass: true, Details: cfg.DataDir}
}

func checkAdminLogin(cfg *config.Config) CheckResult {
	const name = "Admin Login"
	switch {
	case cfg.AdminPasswordHash == "":
		return CheckResult{Name: name, Error: "admin.password_hash is not set",
			Suggestion: "Run: studybuddy admin hash-password"}
	case !strings.HasPrefix(cfg.AdminPasswordHash, "$2"):
		return CheckResult{Name: name, Error: "admin.password_hash is not a bcrypt hash",
			Suggestion: "Run: studybuddy admin hash-password"}
	case len(cfg.AdminJWTSecret) < config.MinAdminJWTSecret:
		return CheckResult{Name: name, Error: "admin.jwt_secret is missing or shorter than 32 characters",
			Suggestion: "Set STUDYBUDDY_ADMIN_JWT_SECRET to a long random string"}
	}
	return CheckResult{Name: name, Pass: true}
}

func checkDatabaseConnection(db *sql.DB) CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:       "Database Connection",
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL and ensure PostgreSQL is running",
		}
	}
	return CheckResult{Name: "Database Connection", Pass: true}
}

func checkPostgreSQLVersion(db *sql.DB) CheckResult {
	var version string
	if err := db.QueryRow("SHOW server_version").Scan(&version); err != nil {
		return CheckResult{Name: "PostgreSQL Version", Error: err.Error()}
	}

	// e.g. "17.1 (Debian 17.1-1)"
	number := strings.Fields(version)[0]
	major, _ := strconv.Atoi(strings.Split(number, ".")[0])
	if major < minPostgresMajor {
		return CheckResult{
			Name:       "PostgreSQL Version",
			Error:      fmt.Sprintf("Version %s found, need ≥%d", number, minPostgresMajor),
			Suggestion: fmt.Sprintf("Upgrade PostgreSQL to version %d or higher", minPostgresMajor),
		}
	}
	return CheckResult{Name: "PostgreSQL Version", Pass: true, Details: number}
}

func checkMigrations(cfg *config.Config) CheckResult {
	const name = "Database Migrations"
	version, dirty, err := database.GetMigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return CheckResult{Name: name, Error: err.Error(), Suggestion: "Run migrations with: studybuddy migrate up"}
	}
	expected, err := database.LatestMigrationVersion()
	if err != nil {
		return CheckResult{Name: name, Error: err.Error()}
	}
	if dirty {
		return CheckResult{Name: name, Error: "Migration state is dirty",
			Suggestion: "Fix dirty migration state, may need manual intervention"}
	}
	if version != expected {
		return CheckResult{Name: name,
			Error:      fmt.Sprintf("Migration version %d, expected %d", version, expected),
			Suggestion: "Run migrations with: studybuddy migrate up"}
	}
	return CheckResult{Name: name, Pass: true, Details: fmt.Sprintf("v%d", version)}
}

func checkMaterializedViews(db *sql.DB) CheckResult {
	rows, err := db.Query(`
		SELECT matviewname
		FROM pg_matviews
		WHERE schemaname = 'public' AND matviewname = ANY($1)
	`, pq.Array(requiredMatViews))
	if err != nil {
		return CheckResult{Name: "Materialized Views", Error: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			found[name] = true
		}
	}

	var missing []string
	for _, view := range requiredMatViews {
		if !found[view] {
			missing = append(missing, view)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:       "Materialized Views",
			Error:      fmt.Sprintf("Missing views: %s", strings.Join(missing, ", ")),
			Suggestion: "Run migrations to create missing materialized views",
		}
	}
	return CheckResult{
		Name:    "Materialized Views",
		Pass:    true,
		Details: fmt.Sprintf("%d/%d views found", len(requiredMatViews), len(requiredMatViews)),
	}
}

func checkRedis(redisURL string) CheckResult {
	const name = "Redis Connection"
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return CheckResult{Name: name, Error: err.Error(), Suggestion: "Verify REDIS_URL"}
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return CheckResult{Name: name, Error: err.Error(), Suggestion: "Ensure Redis is running and reachable"}
	}
	return CheckResult{Name: name, Pass: true, Details: opts.Addr}
}

func collectChecks(cfg *config.Config) []CheckResult {
	results := []CheckResult{checkAdminLogin(cfg)}

	if cfg.AnalyticsStore == config.AnalyticsLocal || cfg.ProgressStore == config.ProgressFile {
		results = append(results, checkDataDirectory(cfg))
	}
	if cfg.ProgressStore == config.ProgressRedis {
		results = append(results, checkRedis(cfg.RedisURL))
	}
	if !cfg.NeedsDatabase() {
		return results
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return append(results, CheckResult{
			Name:       "Database Connection",
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL is valid",
		})
	}
	defer func() { _ = db.Close() }()

	conn := checkDatabaseConnection(db)
	results = append(results, conn)
	if !conn.Pass {
		return results
	}
	results = append(results, checkPostgreSQLVersion(db), checkMigrations(cfg))
	if cfg.AnalyticsStore == config.AnalyticsPostgres {
		results = append(results, checkMaterializedViews(db))
	}
	return results
}

func runDoctor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("✗ Configuration Error: %v\n", err)
		return err
	}

	results := collectChecks(cfg)
	if jsonOutput {
		outputDoctorJSON(os.Stdout, results)
	} else {
		outputDoctorHuman(os.Stdout, results)
	}

	for _, r := range results {
		if !r.Pass {
			return fmt.Errorf("%s check failed", r.Name)
		}
	}
	return nil
}

func outputDoctorHuman(w io.Writer, results []CheckResult) {
	_, _ = fmt.Fprintln(w, "\nStudyBuddy Health Check")

	passed := 0
	for _, r := range results {
		icon := "✓"
		if r.Pass {
			passed++
		} else {
			icon = "✗"
		}

		_, _ = fmt.Fprintf(w, "%s %s", icon, r.Name)
		if r.Details != "" {
			_, _ = fmt.Fprintf(w, " (%s)", r.Details)
		}
		_, _ = fmt.Fprintln(w)

		if !r.Pass {
			if r.Error != "" {
				_, _ = fmt.Fprintf(w, "  Error: %s\n", r.Error)
			}
			if r.Suggestion != "" {
				_, _ = fmt.Fprintf(w, "  Hint: %s\n", r.Suggestion)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\n%d/%d checks passed\n\n", passed, len(results))
}

func outputDoctorJSON(w io.Writer, results []CheckResult) {
	data, _ := json.MarshalIndent(results, "", "  ")
	_, _ = fmt.Fprintln(w, string(data))
}

func init() {
	doctorCmd.Flags().Bool("json", false, "Output results as JSON")
}

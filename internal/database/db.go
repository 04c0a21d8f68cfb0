package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// pipelineTables lists every table touched by Maintenance, in
// write order through the pipeline.
var pipelineTables = []string{
	"sst_grid",
	"sst_daily",
	"sst_monthly",
	"sst_yearly",
	"climate_baselines",
	"temperature_anomalies",
	"marine_heatwaves",
	"job_runs",
}

// Maintenance runs VACUUM ANALYZE over the pipeline tables. A failure
// on one table is logged and the rest still run.
func (db *DB) Maintenance(ctx context.Context) error {
	var failed int
	for _, table := range pipelineTables {
		if _, err := db.ExecContext(ctx, "VACUUM ANALYZE "+table); err != nil {
			log.Printf("maintenance: vacuum analyze %s: %v", table, err)
			failed++
		}
	}
	if failed == len(pipelineTables) {
		return fmt.Errorf("maintenance failed on all %d tables", failed)
	}
	return nil
}

// InsertJobRun appends a job execution record.
func (db *DB) InsertJobRun(ctx context.Context, run *JobRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	query := `
		INSERT INTO job_runs (id, job_name, status, started_at, finished_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.ExecContext(ctx, query,
		run.ID, run.JobName, run.Status, run.StartedAt, run.FinishedAt, run.Note)
	if err != nil {
		return fmt.Errorf("failed to insert job run: %w", err)
	}
	return nil
}

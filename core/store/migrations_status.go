package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"
)

type MigrationStatus struct {
	NowUTC time.Time `json:"now_utc"`

	Dialect        string `json:"dialect"`
	HasGooseTable  bool   `json:"has_goose_table"`
	CurrentVersion int64  `json:"current_version"`
	LatestVersion  int64  `json:"latest_version"`
	HasPending     bool   `json:"has_pending"`
}

// GetMigrationStatus backs /readyz and `migrate -status`.
func GetMigrationStatus(ctx context.Context, db *sql.DB) (MigrationStatus, error) {
	now := time.Now().UTC()
	if db == nil {
		return MigrationStatus{NowUTC: now}, fmt.Errorf("nil db")
	}
	isPG, err := isPostgresDB(ctx, db)
	if err != nil {
		return MigrationStatus{NowUTC: now}, err
	}
	dialect, dir := migrationTarget(isPG)
	latest, err := latestGooseMigrationVersion(dir)
	if err != nil {
		return MigrationStatus{NowUTC: now, Dialect: dialect}, err
	}
	hasGoose, err := tableExists(ctx, db, isPG, gooseTable)
	if err != nil {
		return MigrationStatus{NowUTC: now, Dialect: dialect, LatestVersion: latest}, err
	}
	current := int64(0)
	if hasGoose {
		cur, derr := getGooseDBVersion(ctx, db)
		if derr != nil {
			return MigrationStatus{NowUTC: now, Dialect: dialect, LatestVersion: latest}, derr
		}
		current = cur
	}
	return MigrationStatus{
		NowUTC:         now,
		Dialect:        dialect,
		HasGooseTable:  hasGoose,
		CurrentVersion: current,
		LatestVersion:  latest,
		HasPending:     latest > current,
	}, nil
}

func getGooseDBVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_id), 0) FROM `+gooseTable).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func latestGooseMigrationVersion(dir string) (int64, error) {
	entries, err := fs.Glob(gooseMigrationsFS, dir+"/*.sql")
	if err != nil {
		return 0, err
	}
	var max int64
	for _, p := range entries {
		// filename: 00006_user_counters.sql
		parts := strings.SplitN(path.Base(p), "_", 2)
		n, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

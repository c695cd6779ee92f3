// Package refdata reads the lookup tables the pipeline resolves scrape
// targets against: seasons, regions, age groups, tournament levels and
// pools, plus the optional color assigned to a pool. The store is read-only
// for the pipeline; rows are maintained out of band.
package refdata

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Season is one playing season, e.g. "2025/2026".
type Season struct {
	Value int
	Name  string
}

// Region is a portal region ("union"), e.g. east/west Denmark.
type Region struct {
	Value int
	Name  string
}

// AgeGroup is an age bracket (seniors, juniors, veterans...).
type AgeGroup struct {
	Value int
	Name  string
}

// Pool is the smallest schedulable grouping of teams the portal lists
// matches under. The Value fields are the portal's stable integers, not row
// ids.
type Pool struct {
	Value         int
	Name          string
	LevelValue    int
	SeasonValue   int
	RegionValue   int
	AgeGroupValue int
}

// Store wraps the sqlite reference database.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary initializes) the reference database at path.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening reference database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing reference schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for seeding in tests and maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Seasons returns all seasons, newest value first.
func (s *Store) Seasons(ctx context.Context) ([]Season, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value, name FROM seasons ORDER BY value DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying seasons: %w", err)
	}
	defer rows.Close()

	var seasons []Season
	for rows.Next() {
		var se Season
		if err := rows.Scan(&se.Value, &se.Name); err != nil {
			return nil, fmt.Errorf("scanning season: %w", err)
		}
		seasons = append(seasons, se)
	}
	return seasons, rows.Err()
}

// Regions returns all regions ordered by value.
func (s *Store) Regions(ctx context.Context) ([]Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value, name FROM regions ORDER BY value`)
	if err != nil {
		return nil, fmt.Errorf("querying regions: %w", err)
	}
	defer rows.Close()

	var regions []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.Value, &r.Name); err != nil {
			return nil, fmt.Errorf("scanning region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// AgeGroups returns all age groups ordered by value.
func (s *Store) AgeGroups(ctx context.Context) ([]AgeGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value, name FROM age_groups ORDER BY value`)
	if err != nil {
		return nil, fmt.Errorf("querying age groups: %w", err)
	}
	defer rows.Close()

	var groups []AgeGroup
	for rows.Next() {
		var g AgeGroup
		if err := rows.Scan(&g.Value, &g.Name); err != nil {
			return nil, fmt.Errorf("scanning age group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Pools returns the pools for one (season, region, age group) combination in
// portal order.
func (s *Store) Pools(ctx context.Context, seasonValue, regionValue, ageGroupValue int) ([]Pool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, name, level_value, season_value, region_value, age_group_value
		FROM pools
		WHERE season_value = ? AND region_value = ? AND age_group_value = ?
		ORDER BY level_value, value`,
		seasonValue, regionValue, ageGroupValue)
	if err != nil {
		return nil, fmt.Errorf("querying pools: %w", err)
	}
	defer rows.Close()

	var pools []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.Value, &p.Name, &p.LevelValue, &p.SeasonValue, &p.RegionValue, &p.AgeGroupValue); err != nil {
			return nil, fmt.Errorf("scanning pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// AllPools returns every pool of a season across regions and age groups, the
// batch mode's work list.
func (s *Store) AllPools(ctx context.Context, seasonValue int) ([]Pool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, name, level_value, season_value, region_value, age_group_value
		FROM pools
		WHERE season_value = ?
		ORDER BY region_value, age_group_value, level_value, value`,
		seasonValue)
	if err != nil {
		return nil, fmt.Errorf("querying season pools: %w", err)
	}
	defer rows.Close()

	var pools []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.Value, &p.Name, &p.LevelValue, &p.SeasonValue, &p.RegionValue, &p.AgeGroupValue); err != nil {
			return nil, fmt.Errorf("scanning pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// ColorFor resolves the color id assigned to a pool, or (0, false) when the
// pool has no assignment.
func (s *Store) ColorFor(ctx context.Context, p Pool) (int, bool, error) {
	var colorID int
	err := s.db.QueryRowContext(ctx, `
		SELECT color_id FROM pool_colors
		WHERE pool_value = ? AND level_value = ? AND season_value = ?
		  AND region_value = ? AND age_group_value = ?`,
		p.Value, p.LevelValue, p.SeasonValue, p.RegionValue, p.AgeGroupValue).Scan(&colorID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying pool color: %w", err)
	}
	return colorID, true, nil
}

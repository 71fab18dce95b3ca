package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sol-terminal/src/logger"
	"sol-terminal/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema per deployment, derived from the executable name
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."pool_samples" (
			instrument TEXT,
			timestamp BIGINT,
			price DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (instrument, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create pool_samples: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."pool_aggregates" (
			instrument TEXT,
			window_name TEXT,
			start_time BIGINT,
			end_time BIGINT,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			mean DOUBLE PRECISION,
			std_dev DOUBLE PRECISION,
			price_percent_change DOUBLE PRECISION,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (instrument, window_name, start_time)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create pool_aggregates: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSamplesBulk(instrument string, samples []models.MSamplePoint) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."pool_samples" (instrument, timestamp, price, volume)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instrument, timestamp) DO UPDATE SET
			price = EXCLUDED.price,
			volume = EXCLUDED.volume
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.Exec(instrument, s.Timestamp, s.Price, s.Volume)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAggregates(states map[string]models.MAggregateState) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."pool_aggregates" (instrument, window_name, start_time, end_time, open, high, low, close, volume, mean, std_dev, price_percent_change, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (instrument, window_name, start_time) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			mean = EXCLUDED.mean,
			std_dev = EXCLUDED.std_dev,
			price_percent_change = EXCLUDED.price_percent_change,
			updated_at = EXCLUDED.updated_at
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for instrument, agg := range states {
		for windowName, w := range agg.Windows {
			if w.Candle.StartTime == 0 {
				continue
			}
			_, err := stmt.Exec(instrument, windowName,
				w.Candle.StartTime, w.Candle.EndTime,
				w.Candle.Open, w.Candle.High, w.Candle.Low, w.Candle.Close, w.Candle.Volume,
				w.Mean, w.StdDev, w.PricePercentChange, now)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."pool_samples" WHERE timestamp < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup pool_samples error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."pool_aggregates" WHERE end_time < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup pool_aggregates error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

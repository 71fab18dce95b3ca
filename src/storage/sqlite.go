package storage

import (
	"database/sql"
	"fmt"
	"time"

	"sol-terminal/src/logger"
	"sol-terminal/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// Raw per-tick samples
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS pool_samples (
			instrument TEXT,
			timestamp INTEGER,
			price REAL,
			volume REAL,
			PRIMARY KEY (instrument, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create pool_samples: %w", err)
	}

	// One row per instrument/window/bar, upserted as the bar evolves
	query = `
		CREATE TABLE IF NOT EXISTS pool_aggregates (
			instrument TEXT,
			window_name TEXT,
			start_time INTEGER,
			end_time INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			mean REAL,
			std_dev REAL,
			price_percent_change REAL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (instrument, window_name, start_time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create pool_aggregates: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveSamplesBulk(instrument string, samples []models.MSamplePoint) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO pool_samples (instrument, timestamp, price, volume)
		VALUES (?, ?, ?, ?)
	`)
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

func (d *AsyncSQLiteDB) SaveAggregates(states map[string]models.MAggregateState) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pool_aggregates (instrument, window_name, start_time, end_time, open, high, low, close, volume, mean, std_dev, price_percent_change, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instrument, window_name, start_time) DO UPDATE SET
			end_time = excluded.end_time,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			mean = excluded.mean,
			std_dev = excluded.std_dev,
			price_percent_change = excluded.price_percent_change,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for instrument, agg := range states {
		for windowName, w := range agg.Windows {
			if w.Candle.StartTime == 0 {
				continue // window has never seen a tick
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

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec("DELETE FROM pool_samples WHERE timestamp < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup pool_samples error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM pool_aggregates WHERE end_time < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup pool_aggregates error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the SQLite-backed wallet.Store.
type Database struct {
	db *gorm.DB
}

// Option configures NewDatabase.
type Option func(*gorm.Config)

// WithLogger routes gorm's SQL logging through l.
func WithLogger(l gormlogger.Interface) Option {
	return func(c *gorm.Config) {
		c.Logger = l
	}
}

// NewDatabase opens (or creates) the SQLite database at dbPath and migrates
// the schema. ":memory:" gives a private in-memory database.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	cfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := gorm.Open(sqlite.Open(dbPath+sep+"_busy_timeout=5000&_foreign_keys=on"), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One connection: SQLite allows a single writer, and an in-memory
	// database lives only as long as its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&AccountModel{}, &TransactionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Accounts returns the account store bound to this database handle.
func (d *Database) Accounts() wallet.AccountStore {
	return &AccountStore{db: d.db}
}

// Ledger returns the ledger store bound to this database handle.
func (d *Database) Ledger() wallet.LedgerStore {
	return &LedgerStore{db: d.db}
}

// Atomically runs fn inside a database transaction.
func (d *Database) Atomically(ctx context.Context, fn func(tx wallet.Store) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

// Ping checks the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// uniqueViolation reports whether err is a UNIQUE or PRIMARY KEY conflict
// and, if so, which column ("table.column") caused it.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique &&
			sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return "", false
		}
	} else if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", false
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:], true
	}
	return "", true
}

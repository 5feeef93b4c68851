package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	sqldblogger "github.com/simukti/sqldb-logger"
)

const (
	connectAttempts = 5

	// sqliteDriver is the go-sqlite3 driver with a Unicode aware LOWER, the
	// builtin only folds ASCII letters.
	sqliteDriver = "sqlite3_unicode"
)

var (
	//go:embed migrations
	migrations embed.FS

	dbLogger = logger.Get("DB")

	// goose configuration is global, so concurrent migrations must be serialized
	migrationLock sync.Mutex
)

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

func unicodeLower(value string) string {
	return strings.ToLower(value)
}

type (
	SqlLogger struct {
		logger logger.Logger
	}

	gooseLogger struct {
		logger logger.Logger
	}

	// Queryable is satisfied by both *sqlx.DB and *sqlx.Tx, allowing stores
	// to be used inside or outside of a transaction.
	Queryable interface {
		sqlx.Queryer
		sqlx.Execer
		Get(dest any, query string, args ...any) error
		Select(dest any, query string, args ...any) error
		NamedExec(query string, arg any) (sql.Result, error)
		Rebind(query string) string
		DriverName() string
	}

	Manager interface {
		Connect(DatabaseConfig) error
		GetSqlxDb() *sqlx.DB
		WrapTx(func(*sqlx.Tx) error) error
		Close() error
	}

	manager struct {
		rawDb   *sql.DB
		db      *sqlx.DB
		dialect string
	}
)

func New() *manager {
	return &manager{}
}

// Connect opens the database described by the config, and executes any pending
// migrations against it. For sqlite, the parent directory of the database
// file is created if missing and the pool is limited to a single connection,
// serializing writers.
func (db *manager) Connect(config DatabaseConfig) error {
	driver, dsn, err := config.dsn()
	if err != nil {
		return err
	}

	if driver == SQLITE {
		path, _ := config.SqlitePath()
		if err := os.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm); err != nil {
			return fmt.Errorf("failed to create directory for sqlite database: %w", err)
		}
	}

	driverName := driver
	if driver == SQLITE {
		driverName = sqliteDriver
	}

	sql, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	sql = sqldblogger.OpenDriver(dsn, sql.Driver(), &SqlLogger{dbLogger})
	if driver == SQLITE {
		sql.SetMaxOpenConns(1)
	}

	for attempt := 1; ; attempt++ {
		err := sql.Ping()
		if err == nil {
			break
		}

		if driver == SQLITE || attempt >= connectAttempts {
			dbLogger.Emit(logger.ERROR, "All attempts FAILED!\n")
			return fmt.Errorf("failed to connect to %s database: %w", driver, err)
		}

		dbLogger.Emit(logger.WARNING, "Attempt (%v/%v) failed... Retrying in 3s\n", attempt, connectAttempts)
		time.Sleep(time.Second * 3)
	}

	db.rawDb = sql
	db.db = sqlx.NewDb(sql, driver)
	db.dialect = driver

	if err := db.ExecuteMigrations(); err != nil {
		return err
	}

	dbLogger.Emit(logger.SUCCESS, "Database connection complete!\n")
	return nil
}

// ExecuteMigrations uses the comp-time embedded SQL migrations for the connected
// dialect (found in the 'migrations' dir in this package) and runs them against
// the current DB instance.
func (db *manager) ExecuteMigrations() error {
	rawDb := db.rawDb
	if rawDb == nil {
		return errors.New("cannot execute migrations when DB manager has not yet connected")
	}

	migrationLock.Lock()
	defer migrationLock.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{dbLogger})
	if err := goose.SetDialect(db.dialect); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	dbLogger.Emit(logger.INFO, "Checking for pending DB migrations...\n")
	if err := goose.Up(rawDb, "migrations/"+db.dialect); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	dbLogger.Emit(logger.SUCCESS, "DB Goose migration complete!\n")
	return nil
}

func (db *manager) GetSqlxDb() *sqlx.DB {
	return db.db
}

// WrapTx is a convinience method around the top-level WrapTx, which simply
// uses the managers DB instance as the first argument.
func (db *manager) WrapTx(f func(tx *sqlx.Tx) error) error {
	if db.db == nil {
		return errors.New("DB manager has not yet connected")
	}

	return WrapTx(db.db, f)
}

func (db *manager) Close() error {
	if db.db == nil {
		return nil
	}

	return db.db.Close()
}

func (l *SqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	template := "%s - %v\n"
	switch level {
	case sqldblogger.LevelTrace:
		l.logger.Verbosef(template, msg, data)
	case sqldblogger.LevelDebug, sqldblogger.LevelInfo:
		duration := data["duration"]
		query, ok := data["query"]
		if ok {
			l.logger.Verbosef("%s [%.2fms] -- %s\n", msg, duration, query)
		} else {
			l.logger.Verbosef("%s [%.2fms]\n", msg, duration)
		}
	case sqldblogger.LevelError:
		l.logger.Errorf(template, msg, data)
	}
}

func (l *gooseLogger) Fatal(v ...any) { l.logger.Emit(logger.FATAL, "%s", fmt.Sprint(v...)) }
func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Emit(logger.FATAL, format, v...)
}
func (l *gooseLogger) Print(v ...any)   { l.logger.Debugf("%s", fmt.Sprint(v...)) }
func (l *gooseLogger) Println(v ...any) { l.logger.Debugf("%s", fmt.Sprintln(v...)) }
func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Debugf(format, v...)
}

// WrapTx starts a transaction against the provided DB, and then calls the user
// provided function. If this function errors, the transaction is rolled back - otherwise
// the transaction is committed.
func WrapTx(db *sqlx.DB, f func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		dbLogger.Errorf("Transaction failed... rolling back. Error: %s\n", err.Error())
		return err
	}

	return tx.Commit()
}

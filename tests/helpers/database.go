package helpers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/labstack/gommon/random"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	MasterDBName     = "MNEMO_DB"
)

var (
	ctx = context.Background()

	pgManager = newDatabaseManager(MasterDBName)
)

// NewSqliteManager connects a database manager to a fresh, fully migrated
// sqlite database inside of the tests temporary directory. The connection is
// closed automatically when the test completes.
func NewSqliteManager(t *testing.T) database.Manager {
	config := database.DatabaseConfig{
		Dialect: database.SQLITE,
		Path:    filepath.Join(t.TempDir(), "knowledge.db"),
	}

	return connectManager(t, config)
}

// NewPostgresManager provisions a fresh database inside of a shared postgres
// container and returns a database manager connected to it. The container is
// spawned on first use. Tests using this helper are skipped in short mode.
func NewPostgresManager(t *testing.T) database.Manager {
	if testing.Short() {
		t.Skip("skipping postgres backed test in short mode")
	}

	config := pgManager.provisionDB(t, fmt.Sprintf("MNEMO_TEST_%s", random.String(12, random.Uppercase)))
	return connectManager(t, config)
}

func connectManager(t *testing.T, config database.DatabaseConfig) database.Manager {
	manager := database.New()
	if err := manager.Connect(config); err != nil {
		t.Fatalf("failed to connect to %s test database: %s", config.Dialect, err)
	}

	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

// databaseManager is an internal test helper which facilitates
// the templating of a single 'master' database in a shared postgresql
// container. This allows tests to use individual databases without
// needing to create multiple containers. This manager will:
//   - automatically spawn the container,
//   - migrate the master database,
//   - mark the master database as a template, and,
//   - provision new databases based off that master database.
type databaseManager struct {
	*sync.Mutex
	masterDatabaseName string
	pgContainer        *postgres.PostgresContainer
	host               string
	port               string
	connection         *sql.DB
}

func newDatabaseManager(databaseName string) *databaseManager {
	return &databaseManager{
		Mutex:              &sync.Mutex{},
		masterDatabaseName: databaseName,
	}
}

func (manager *databaseManager) provisionDB(t *testing.T, databaseName string) database.DatabaseConfig {
	manager.Lock()
	defer manager.Unlock()

	if manager.connection == nil {
		t.Log("Database provisioning request received but manager not started yet. Initializing database management...")
		manager.connect(t)
		manager.markMasterDB(t)
		t.Log("Database management initialised!")
	}

	_, err := manager.connection.Exec(fmt.Sprintf(`CREATE DATABASE "%s" TEMPLATE "%s"`, databaseName, manager.masterDatabaseName))
	if err != nil {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != "42P04" {
			t.Fatalf("failed to provision database '%s' based on template database '%s': (%T) %s", databaseName, manager.masterDatabaseName, err, err)
		}

		t.Logf("Database '%s' already provisioned. Reusing database", databaseName)
	}

	return manager.configFor(databaseName)
}

func (manager *databaseManager) configFor(databaseName string) database.DatabaseConfig {
	return database.DatabaseConfig{
		Dialect:  database.POSTGRES,
		User:     PostgresUser,
		Password: PostgresPassword,
		Name:     databaseName,
		Host:     manager.host,
		Port:     manager.port,
	}
}

func (manager *databaseManager) connect(t *testing.T) {
	if manager.pgContainer == nil {
		manager.spawnPostgres(t)
	}

	config := manager.configFor(manager.masterDatabaseName)
	db, err := sql.Open(database.POSTGRES, fmt.Sprintf(database.PostgresConnectionString, config.Host, config.User, config.Password, config.Name, config.Port))
	if err != nil {
		t.Fatalf("failed to open postgres connection: %s", err)
	}

	for attempt := 1; ; attempt++ {
		err := db.Ping()
		if err == nil {
			break
		}

		if attempt == 3 {
			t.Fatalf("all database connection attempts FAILED: %s", err)
		}

		t.Logf("DB connection attempt (%v/3) failed... Retrying in 3s", attempt)
		time.Sleep(3 * time.Second)
	}

	t.Log("Database connection established!")
	manager.connection = db
}

// markMasterDB migrates the master database and marks it as a template. The
// migrating connection must be closed first, as postgres refuses to copy a
// template database which has active connections.
func (manager *databaseManager) markMasterDB(t *testing.T) {
	t.Log("Migrating master database...")
	migrator := database.New()
	if err := migrator.Connect(manager.configFor(manager.masterDatabaseName)); err != nil {
		t.Fatalf("failed to migrate master database: %s", err)
	}
	_ = migrator.Close()

	t.Log("Master DB migrated, marking master database as template...")
	if _, err := manager.connection.Exec(fmt.Sprintf(`ALTER DATABASE "%s" WITH is_template TRUE`, manager.masterDatabaseName)); err != nil {
		t.Fatalf("failed to mark master database (%s) as template: %s", manager.masterDatabaseName, err)
	}

	// Our own connection is to the template too, so switch it to the maintenance DB
	_ = manager.connection.Close()
	config := manager.configFor("postgres")
	db, err := sql.Open(database.POSTGRES, fmt.Sprintf(database.PostgresConnectionString, config.Host, config.User, config.Password, config.Name, config.Port))
	if err != nil {
		t.Fatalf("failed to reopen postgres connection: %s", err)
	}
	manager.connection = db
}

func (manager *databaseManager) spawnPostgres(t *testing.T) {
	postgresC, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:14.1-alpine"),
		postgres.WithDatabase(manager.masterDatabaseName),
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
		return
	}

	host, err := postgresC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to resolve postgres container host: %s", err)
	}
	port, err := postgresC.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to resolve postgres container port: %s", err)
	}

	manager.pgContainer = postgresC
	manager.host = host
	manager.port = port.Port()
}

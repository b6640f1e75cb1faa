package database

import (
	"context"
	"testing"
	"testing/fstest"

	"socialnet/internal/config"
	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: ":memory:", DBMaxOpenConns: 1}
	db, err := Connect(cfg, nil)
	require.NoError(t, err)
	assert.False(t, IsPostgres(db))
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(&config.Config{
		DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "social",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=social sslmode=disable", dsn)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_init_schema", all[0].String())
	assert.Contains(t, all[0].UpScript, "idx_friendships_pair")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS friendships")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("CREATE TABLE b (id INTEGER)")},
		"m/000002_second.down.sql": {Data: []byte("DROP TABLE b")},
		"m/000001_first.up.sql":    {Data: []byte("CREATE TABLE a (id INTEGER)")},
		"m/000001_first.down.sql":  {Data: []byte("DROP TABLE a")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	loaded, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, "second", loaded[1].Name)

	delete(fsys, "m/000001_first.down.sql")
	_, err = LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestRunMigrationSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	set := []Migration{
		{Version: 1, Name: "first", UpScript: "CREATE TABLE a (id INTEGER)", DownScript: "DROP TABLE a"},
		{Version: 2, Name: "second", UpScript: "CREATE TABLE b (id INTEGER)", DownScript: "DROP TABLE b"},
	}
	require.NoError(t, runMigrationSet(ctx, db, set))
	require.NoError(t, runMigrationSet(ctx, db, set), "re-running must be a no-op")

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("b"))

	err = runMigrationSet(ctx, db, set[:1])
	assert.ErrorContains(t, err, "000002")
}

func TestRunMigrationSet_FailedScriptIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := runMigrationSet(ctx, db, []Migration{{Version: 1, Name: "broken", UpScript: "NOT SQL"}})
	assert.Error(t, err)

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{name: "hybrid dev", cfg: config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "hybrid"}, wantSQL: true, wantAuto: true},
		{name: "hybrid prod", cfg: config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, wantSQL: true},
		{name: "sql", cfg: config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "sql"}, wantSQL: true},
		{name: "auto prod refused", cfg: config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto"}, wantErr: true},
		{name: "auto prod allowed", cfg: config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, wantAuto: true},
		{name: "empty defaults to hybrid", cfg: config.Config{DBDriver: "postgres", Env: "test"}, wantSQL: true, wantAuto: true},
		{name: "unknown", cfg: config.Config{DBDriver: "postgres", DBSchemaMode: "magic"}, wantErr: true},
		{name: "sqlite always automigrates", cfg: config.Config{DBDriver: "sqlite", Env: "production", DBSchemaMode: "sql"}, wantAuto: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestApplySchema_SQLiteCreatesPairIndex(t *testing.T) {
	db := openTestDB(t)
	cfg := &config.Config{DBDriver: "sqlite", Env: "test", DBSchemaMode: "hybrid"}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Friendship{}, "idx_friendships_pair"))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

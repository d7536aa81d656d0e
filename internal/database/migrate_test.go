package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T, params string) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "chirp.db") + params
	db, err := gorm.Open(sqlite.Open(dsn), GormConfig(logger.Discard))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func sqliteMigrations() fstest.MapFS {
	return fstest.MapFS{
		"m/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"m/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"m/000002_gadgets.up.sql": {Data: []byte(
			"CREATE TABLE gadgets (id INTEGER PRIMARY KEY, widget_id INTEGER);\nCREATE INDEX idx_gadgets_widget_id ON gadgets (widget_id);")},
		"m/000002_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets;")},
		"m/README.md":               {Data: []byte("ignored")},
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "000001_init_schema", first.String())
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"idx_posts_author_repost ON posts (author_id, repost_id)",
		"CONSTRAINT fk_likes_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE",
		"CONSTRAINT fk_likes_post FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE",
		"CONSTRAINT fk_follows_follower",
		"CONSTRAINT fk_passwords_user",
	} {
		assert.Contains(t, first.Up, want)
	}
	assert.Contains(t, first.Down, "DROP TABLE IF EXISTS users")

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations(sqliteMigrations(), "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "gadgets", migrations[1].Name)

	broken := map[string]fstest.MapFS{
		"missing down": {"m/000001_a.up.sql": {Data: []byte("SELECT 1;")}},
		"bad version":  {"m/first_a.up.sql": {Data: []byte("SELECT 1;")}, "m/first_a.down.sql": {}},
		"no name":      {"m/000001.up.sql": {Data: []byte("SELECT 1;")}, "m/000001.down.sql": {}},
		"duplicate": {
			"m/000001_a.up.sql": {}, "m/000001_a.down.sql": {},
			"m/1_b.up.sql": {}, "m/1_b.down.sql": {},
		},
	}
	for name, fsys := range broken {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMigrations(fsys, "m")
			assert.Error(t, err)
		})
	}
}

func TestMigrator_UpDown(t *testing.T) {
	db := openSQLite(t, "")
	ctx := context.Background()
	migrations, err := LoadMigrations(sqliteMigrations(), "m")
	require.NoError(t, err)
	m := NewMigrator(db, migrations)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "applied migrations are not rerun")

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	assert.ErrorContains(t, m.Down(ctx, 1), "not the latest")
	assert.ErrorContains(t, m.Down(ctx, 7), "not found")

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.ErrorContains(t, m.Down(ctx, 2), "has not been applied")

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openSQLite(t, "")
	ctx := context.Background()
	m := NewMigrator(db, []Migration{
		{Version: 1, Name: "ok", Up: "CREATE TABLE widgets (id INTEGER PRIMARY KEY);", Down: "DROP TABLE widgets;"},
		{Version: 2, Name: "broken", Up: "CREATE TABLE widgets (id INTEGER PRIMARY KEY);", Down: ""},
	})

	n, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken")
	assert.Equal(t, 1, n)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestMigrator_RejectsUnknownVersions(t *testing.T) {
	db := openSQLite(t, "")
	ctx := context.Background()
	m := NewMigrator(db, nil)
	_, err := m.Applied(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Create(&MigrationLog{Version: 42, Name: "from_the_future"}).Error)

	_, err = m.Up(ctx)
	assert.ErrorContains(t, err, "000042")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name              string
		cfg               config.Config
		wantSQL, wantAuto bool
		wantErr           bool
	}{
		{"hybrid dev", config.Config{DBDriver: "postgres", Env: "development"}, true, true, false},
		{"default mode is hybrid", config.Config{DBDriver: "postgres", Env: "test", DBSchemaMode: ""}, true, true, false},
		{"hybrid prod", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"hybrid staging", config.Config{DBDriver: "postgres", Env: "staging", DBSchemaMode: "hybrid"}, true, false, false},
		{"hybrid sqlite", config.Config{DBDriver: "sqlite", Env: "development", DBSchemaMode: "hybrid"}, false, true, false},
		{"sql", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "sql"}, true, false, false},
		{"sql on sqlite", config.Config{DBDriver: "sqlite", DBSchemaMode: "sql"}, false, false, true},
		{"auto dev", config.Config{DBDriver: "postgres", Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"auto prod allowed", config.Config{DBDriver: "postgres", Env: "prod", DBSchemaMode: "auto", DBAutoMigrateDestructive: true}, false, true, false},
		{"unknown", config.Config{DBDriver: "postgres", DBSchemaMode: "manual"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL, "sql")
			assert.Equal(t, tt.wantAuto, runAuto, "auto")
		})
	}
}

func TestGetSchemaStatus_SQLite(t *testing.T) {
	db := openSQLite(t, "")
	status, err := GetSchemaStatus(context.Background(), db, &config.Config{DBDriver: "sqlite", Env: "test"})
	require.NoError(t, err)
	assert.Equal(t, SchemaModeHybrid, status.Mode)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
	assert.Empty(t, status.PendingMigrations)
}

func TestConnectWithOptions_SkipsSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver:       "sqlite",
		DBPath:         filepath.Join(t.TempDir(), "chirp.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		Env:            "test",
	}
	db, err := ConnectWithOptions(cfg, ConnectOptions{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.False(t, db.Migrator().HasTable(&models.User{}))

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
}

func TestAutoMigrate_ForeignKeys(t *testing.T) {
	db := openSQLite(t, "?_foreign_keys=1")
	require.NoError(t, AutoMigrate(db))

	alice := &models.User{Username: "alice", Email: "alice@example.com", Status: models.UserStatusActive}
	bob := &models.User{Username: "bob", Email: "bob@example.com", Status: models.UserStatusActive}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)
	body := "hello"
	post := &models.Post{AuthorID: alice.ID, Body: &body}
	require.NoError(t, db.Omit("Author").Create(post).Error)

	require.NoError(t, db.Omit("User", "Post").Create(&models.Like{UserID: bob.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Omit("Follower", "Followed").Create(&models.Follow{FollowerID: bob.ID, FollowedID: alice.ID}).Error)
	require.NoError(t, db.Omit("User").Create(&models.Password{UserID: bob.ID, Hash: "x"}).Error)

	err := db.Omit("User", "Post").Create(&models.Like{UserID: 999, PostID: post.ID}).Error
	assert.Error(t, err, "likes must reference an existing user")
	err = db.Omit("Author").Create(&models.Post{AuthorID: 999, Body: &body}).Error
	assert.Error(t, err, "posts must reference an existing author")

	require.NoError(t, db.Delete(&models.User{}, bob.ID).Error)

	var likes, follows, passwords int64
	db.Model(&models.Like{}).Count(&likes)
	db.Model(&models.Follow{}).Count(&follows)
	db.Model(&models.Password{}).Count(&passwords)
	assert.Zero(t, likes, "likes cascade with their user")
	assert.Zero(t, follows, "follows cascade with their user")
	assert.Zero(t, passwords, "passwords cascade with their user")
}

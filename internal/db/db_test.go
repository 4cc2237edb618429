package db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(RedisOpts{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	_ = rdb.Close()

	rdb, err = NewRedisClient(RedisOpts{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestOptionalStoresDisabled(t *testing.T) {
	ch, err := NewClickHouseConnection(ClickHouseOpts{})
	require.NoError(t, err)
	assert.Nil(t, ch)

	_, err = NewSurrealConnection(SurrealOpts{})
	assert.Error(t, err)

	_, err = OpenMySQL("", MySQLOpts{})
	assert.Error(t, err)
}

func TestOpenMySQL_IsLazy(t *testing.T) {
	// nothing listens here; opening must still succeed
	db, err := OpenMySQL("u:p@tcp(127.0.0.1:1)/x?parseTime=true", MySQLOpts{MaxOpenConns: 3})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := migrations.ReadFile(migrationsDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CREATE TABLE outbox_events")
}

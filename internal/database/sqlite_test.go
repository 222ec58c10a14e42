package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/netdev/internal/config"
	"github.com/sshcollectorpro/netdev/internal/model"
)

func TestInitSQLiteAndRoundTrip(t *testing.T) {
	require.NoError(t, InitSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "db", "netdev.db")}))
	defer Close()
	require.NoError(t, Health())

	rec := model.DeviceSession{ID: "s1", Host: "10.0.0.1", Platform: "cisco_asa", State: model.SessionStateReady, CurrentContext: "system"}
	require.NoError(t, WithRetry(func(tx *gorm.DB) error { return tx.Create(&rec).Error }, 3, 10*time.Millisecond))

	var got model.DeviceSession
	require.NoError(t, GetDB().First(&got, "id = ?", "s1").Error)
	assert.Equal(t, "10.0.0.1", got.Host)
	assert.NotNil(t, GetStats())
}

func TestWithRetryStopsOnNonBusyError(t *testing.T) {
	require.NoError(t, InitSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "netdev.db")}))
	defer Close()

	calls := 0
	boom := errors.New("boom")
	err := WithRetry(func(*gorm.DB) error { calls++; return boom }, 5, time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	calls = 0
	err = WithRetry(func(*gorm.DB) error { calls++; return errors.New("database is locked") }, 3, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsBusyError(t *testing.T) {
	assert.True(t, IsBusyError(errors.New("SQLITE_BUSY: database is locked")))
	assert.False(t, IsBusyError(nil))
	assert.False(t, IsBusyError(errors.New("no such table")))
}

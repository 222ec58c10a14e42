package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	ts := time.Date(2026, 10, 13, 9, 30, 5, 0, time.UTC)
	meta := StorageMeta{SessionID: "abc", Device: "FW Edge/01", Command: "show run | i access-list", Seq: 7, Time: ts}

	parts := meta.objectPath("outputs")
	assert.Equal(t, []string{"outputs", "fw_edge_01", "system", "20261013", "abc", "007_093005_show_run__i_access-list.txt"}, parts)

	meta.Context = "ctx1"
	meta.SessionID = ""
	parts = meta.objectPath("")
	assert.Equal(t, []string{"fw_edge_01", "ctx1", "20261013", "007_093005_show_run__i_access-list.txt"}, parts)
}

func TestLocalStorageWriter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Prefix = "outputs"
	w := NewStorageWriter(cfg)

	obj, err := w.Write(context.Background(), StorageMeta{Device: "fw01", Context: "admin", Command: "show clock", Seq: 1}, "10:15:00 UTC")
	require.NoError(t, err)
	assert.Equal(t, int64(12), obj.Size)
	assert.True(t, strings.HasPrefix(obj.Checksum, "sha256:"))
	require.True(t, strings.HasPrefix(obj.URI, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(obj.URI, "file://"))
	require.NoError(t, err)
	assert.Equal(t, "10:15:00 UTC", string(data))
	assert.Contains(t, obj.URI, filepath.Join("outputs", "fw01", "admin"))
}

func TestMinioBackendFallsBackToLocal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "minio"
	// host 缺失时 MinIO 客户端不会初始化
	w := NewStorageWriter(cfg)

	obj, err := w.Write(context.Background(), StorageMeta{Device: "fw01", Command: "show version"}, "ASA 9.18")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote to local instead")
	assert.True(t, strings.HasPrefix(obj.URI, "file://"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "unknown", slug("  "))
	assert.Equal(t, "show_route", slug("Show Route"))
}

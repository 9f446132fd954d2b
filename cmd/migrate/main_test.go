package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlstore "onebox/backend/internal/storage/sql"
)

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run([]string{"-type=sqlite"}, &out), errUsage)
}

func TestRun_SeedsAccount(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	// 保持一个连接，内存库在测试期间不会被释放
	keep, err := sqlstore.NewStore("sqlite", dsn, sqlstore.PoolConfig{})
	require.NoError(t, err)
	defer keep.Close()

	args := []string{
		"-type=sqlite", "-dsn=" + dsn,
		"-account=me@example.com", "-imap-host=imap.example.com", "-imap-port=143",
		"-username=me", "-password=secret",
	}

	var out bytes.Buffer
	require.NoError(t, run(args, &out))
	assert.Contains(t, out.String(), "已添加账户 me@example.com")

	accounts, err := keep.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "me", accounts[0].Username)
	assert.Equal(t, "secret", accounts[0].Password)
	assert.Equal(t, "imap.example.com", accounts[0].IMAPSettings.Host)
	assert.Equal(t, 143, accounts[0].IMAPSettings.Port)
	assert.Nil(t, accounts[0].LastSynced)

	out.Reset()
	require.NoError(t, run(args, &out))
	assert.Contains(t, out.String(), "已存在，跳过")
}

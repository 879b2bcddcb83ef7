package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestConnectRedisSkippedInTestEnv(t *testing.T) {
	t.Setenv("APPENV", "test")
	ResetConfigForTesting()
	t.Cleanup(ResetConfigForTesting)

	client, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestSetRedisClientForTesting(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer rdb.Close()

	SetRedisClientForTesting(rdb)
	t.Cleanup(func() { SetRedisClientForTesting(nil) })

	assert.Equal(t, rdb, GetRedisClient())

	SetRedisClientForTesting(nil)
	assert.Nil(t, GetRedisClient())
}

package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/examprep-api/internal/config"
)

func TestBuildRedisOptions(t *testing.T) {
	t.Run("single по Addr", func(t *testing.T) {
		opts, err := buildRedisOptions(config.RedisConfig{Addr: "localhost:6379", MinRetryBackoff: 8})
		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
		assert.Equal(t, 8*time.Millisecond, opts.MinRetryBackoff)
	})

	t.Run("single берет первый адрес", func(t *testing.T) {
		opts, err := buildRedisOptions(config.RedisConfig{Mode: "single", Addrs: []string{"a:1", "b:2"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a:1"}, opts.Addrs)
	})

	t.Run("sentinel без master name", func(t *testing.T) {
		_, err := buildRedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"a:26379"}})
		assert.Error(t, err)
	})

	t.Run("sentinel", func(t *testing.T) {
		opts, err := buildRedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"a:26379"}, MasterName: "mymaster"})
		require.NoError(t, err)
		assert.Equal(t, "mymaster", opts.MasterName)
	})

	t.Run("cluster с одним адресом", func(t *testing.T) {
		_, err := buildRedisOptions(config.RedisConfig{Mode: "cluster", Addrs: []string{"a:1"}})
		assert.Error(t, err)
	})

	t.Run("нет адресов", func(t *testing.T) {
		_, err := buildRedisOptions(config.RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("неизвестный режим", func(t *testing.T) {
		_, err := buildRedisOptions(config.RedisConfig{Mode: "ring", Addr: "a:1"})
		assert.Error(t, err)
	})
}

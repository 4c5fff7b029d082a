package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, time.Minute, cfg.Snapshot.Interval.Duration)
	assert.Equal(t, 1000, cfg.Journal.SegmentSize)
}

func TestValidateEphemeralSkipsBackendChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "ephemeral"
	cfg.Database = DatabaseConfig{}
	cfg.Redis = RedisConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "nope"
	cfg.Engine.Treasury = "  "
	cfg.Engine.NetworkFeeBps = 10_001
	cfg.Transfer.Mode = "erc20"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "nope"`)
	assert.Contains(t, msg, "treasury must not be empty")
	assert.Contains(t, msg, "network_fee_bps")
	assert.Contains(t, msg, "rpc_url is required")
	assert.Contains(t, msg, "token_address is required")
	assert.Contains(t, msg, "server: port must be 1-65535")
}

func TestValidateERC20Mode(t *testing.T) {
	cfg := Defaults()
	cfg.Transfer = TransferConfig{
		Mode:         "erc20",
		RPCURL:       "https://rpc.example",
		TokenAddress: "0x6b175474e89094c44da98b954eedeac495271d0f",
		ChainID:      1,
		PrivateKey:   "ab",
	}
	assert.NoError(t, cfg.Validate())

	cfg.Transfer.PrivateKey = ""
	cfg.Transfer.EncryptedKeyPath = "/tmp/key.json"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Transfer.PrivateKey = "deadbeef"
	cfg.Database.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.APIKey = "apikey"
	cfg.Notify.TelegramToken = "tg"

	red := RedactedConfig(&cfg)
	blob := strings.Join([]string{
		red.Transfer.PrivateKey,
		red.Database.Password,
		red.Redis.Password,
		red.S3.SecretKey,
		red.Server.APIKey,
		red.Notify.TelegramToken,
	}, "|")
	assert.NotContains(t, blob, "deadbeef")
	assert.NotContains(t, blob, "pgpass")
	assert.NotContains(t, blob, "redispass")
	assert.NotContains(t, blob, "s3secret")
	assert.NotContains(t, blob, "apikey")

	// Redaction must not mutate the original.
	assert.Equal(t, "deadbeef", cfg.Transfer.PrivateKey)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commonTOML = `
version = 1

[storage]
backend = "redis"

[redis]
host = "localhost"
port = 6379
`

const botTOML = `
version = 1

[discord]
token = "file-token"
owner_ids = [9, 10]
guild_id = 2000

[rewards]
channel_id = 1000
discussion_channel_id = 3000
roles_to_ping = [11, 12]
digest_hour = 18
timezone = "America/New_York"

[quest]
channel_ids = [5000, 5001]
`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "common", commonTOML)
	writeConfig(t, dir, "bot", botTOML)

	cfg, path, err := config.LoadConfigFrom(filepath.Join(dir, "missing"), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	assert.Equal(t, config.StorageBackendRedis, cfg.Common.Storage.Backend)
	assert.Equal(t, 6379, cfg.Common.Redis.Port)
	assert.Equal(t, "info", cfg.Common.Debug.LogLevel)

	assert.Equal(t, []uint64{9, 10}, cfg.Bot.Discord.OwnerIDs)
	assert.Equal(t, uint64(2000), cfg.Bot.Discord.GuildID)
	assert.Equal(t, ".", cfg.Bot.Discord.Prefix)
	assert.Equal(t, uint64(1000), cfg.Bot.Rewards.ChannelID)
	assert.Equal(t, []uint64{11, 12}, cfg.Bot.Rewards.RolesToPing)
	assert.Equal(t, 18, cfg.Bot.Rewards.DigestHour)
	assert.Equal(t, []uint64{5000, 5001}, cfg.Bot.Quest.ChannelIDs)
	assert.Equal(t, 600, cfg.Bot.Quest.PromptTimeout)
	assert.Equal(t, "!randchar", cfg.Bot.Onboarding.Trigger)

	loc, err := cfg.Bot.Rewards.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadConfigFrom_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "common", commonTOML)
	writeConfig(t, dir, "bot", botTOML)

	t.Setenv("BOOKWYRM_BOT__DISCORD__TOKEN", "env-token")

	cfg, _, err := config.LoadConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Discord.Token)
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		common  string
		bot     string
		wantErr error
	}{
		{
			name:    "missing bot file",
			common:  commonTOML,
			wantErr: config.ErrConfigFileNotFound,
		},
		{
			name:    "missing version",
			common:  "[storage]\nbackend = \"redis\"\n",
			bot:     botTOML,
			wantErr: config.ErrConfigVersionMissing,
		},
		{
			name:    "old version",
			common:  commonTOML,
			bot:     "version = 99\n",
			wantErr: config.ErrConfigVersionMismatch,
		},
		{
			name:    "digest hour out of range",
			common:  commonTOML,
			bot:     "version = 1\n[rewards]\ndigest_hour = 24\n",
			wantErr: config.ErrInvalidDigestHour,
		},
		{
			name:    "unknown backend",
			common:  "version = 1\n[storage]\nbackend = \"sqlite\"\n",
			bot:     botTOML,
			wantErr: config.ErrUnknownStorageBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.common != "" {
				writeConfig(t, dir, "common", tt.common)
			}
			if tt.bot != "" {
				writeConfig(t, dir, "bot", tt.bot)
			}

			_, _, err := config.LoadConfigFrom(dir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRewardsLocation(t *testing.T) {
	t.Parallel()

	local, err := (&config.Rewards{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, local)

	_, err = (&config.Rewards{Timezone: "Not/AZone"}).Location()
	require.Error(t, err)
}

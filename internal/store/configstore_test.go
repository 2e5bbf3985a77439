package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swelter/internal/backends/memory"
	"swelter/internal/secret"
	"swelter/internal/types"
)

func newTestStore(t *testing.T) (*ConfigStore, *memory.KV) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	cipher, err := secret.New(key)
	require.NoError(t, err)
	kv := memory.NewKV()
	return New(kv, cipher), kv
}

func sampleConfig(id string) types.UserConfig {
	return types.UserConfig{
		UserID:      id,
		SecretToken: "xoxp-" + id,
		Destination: "U" + id,
		Location:    "Boston,US",
		ThresholdF:  82,
		RequireDry:  true,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cfg := sampleConfig("alice")
	require.NoError(t, s.Put(ctx, cfg))

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPutValidatesRequiredFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, mutate := range []func(*types.UserConfig){
		func(c *types.UserConfig) { c.UserID = "" },
		func(c *types.UserConfig) { c.SecretToken = "" },
		func(c *types.UserConfig) { c.Destination = "" },
		func(c *types.UserConfig) { c.Location = "" },
	} {
		cfg := sampleConfig("bob")
		mutate(&cfg)
		assert.ErrorIs(t, s.Put(ctx, cfg), types.ErrValidation)
	}
}

func TestGetAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPutOverwritesPriorRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := sampleConfig("carol")
	require.NoError(t, s.Put(ctx, first))

	second := first
	second.Location = "Reykjavik,IS"
	second.SecretToken = "xoxp-rotated"
	require.NoError(t, s.Put(ctx, second))

	configs, skipped, err := s.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, configs, 1)
	assert.Equal(t, second, configs[0])
}

func TestTokenIsSealedAtRest(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	cfg := sampleConfig("dave")
	require.NoError(t, s.Put(ctx, cfg))

	keys, err := kv.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, keys, 1)

	raw, err := kv.Get(ctx, keys[0])
	require.NoError(t, err)
	assert.NotContains(t, raw, cfg.SecretToken)
}

func TestListSkipsUndecryptableRecords(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleConfig("u1")))
	require.NoError(t, s.Put(ctx, sampleConfig("u2")))
	require.NoError(t, s.Put(ctx, sampleConfig("u3")))

	// Corrupt the middle record's stored envelope.
	require.NoError(t, kv.Put(ctx, "USERCFG#u2",
		`{"user_id":"u2","sealed_token":"Z2FyYmFnZQ==","destination":"Uu2","location":"X"}`))

	configs, skipped, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, configs, 2)
	ids := []string{configs[0].UserID, configs[1].UserID}
	assert.ElementsMatch(t, []string{"u1", "u3"}, ids)
}

func TestGetReportsDecryptionFailureNotAbsence(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleConfig("eve")))
	require.NoError(t, kv.Put(ctx, "USERCFG#eve", `not even json`))

	_, err := s.Get(ctx, "eve")
	assert.ErrorIs(t, err, types.ErrDecryption)
	assert.NotErrorIs(t, err, types.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleConfig("frank")))
	require.NoError(t, s.Delete(ctx, "frank"))

	_, err := s.Get(ctx, "frank")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

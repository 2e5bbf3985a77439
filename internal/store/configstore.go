// Package store implements the encrypting config store on top of any
// ports.KeyValue backend. Records are JSON; the secret token travels through
// the backend only in sealed-envelope form.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"swelter/internal/ports"
	"swelter/internal/secret"
	"swelter/internal/types"
)

const (
	userKeyPrefix   = "USERCFG#"
	envelopeVersion = 1
)

func userKey(id string) string { return userKeyPrefix + id }

func parseUserID(key string) string { return strings.TrimPrefix(key, userKeyPrefix) }

type ConfigStore struct {
	kv     ports.KeyValue
	cipher *secret.Cipher
}

func New(kv ports.KeyValue, cipher *secret.Cipher) *ConfigStore {
	return &ConfigStore{kv: kv, cipher: cipher}
}

func (s *ConfigStore) Put(ctx context.Context, cfg types.UserConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sealed, err := s.cipher.Seal(cfg.SecretToken)
	if err != nil {
		return err
	}
	stored := types.StoredUserConfig{
		UserID:          cfg.UserID,
		SealedToken:     sealed,
		Destination:     cfg.Destination,
		Location:        cfg.Location,
		ThresholdF:      cfg.ThresholdF,
		RequireDry:      cfg.RequireDry,
		EnvelopeVersion: envelopeVersion,
	}
	out, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, userKey(cfg.UserID), string(out))
}

func (s *ConfigStore) Get(ctx context.Context, userID string) (types.UserConfig, error) {
	raw, err := s.kv.Get(ctx, userKey(userID))
	if err != nil {
		return types.UserConfig{}, err
	}
	return s.open(raw)
}

// List walks every stored record. Entries that fail to parse or decrypt are
// skipped and counted, never fatal to the enumeration; a rotated master key
// must not blind the whole batch.
func (s *ConfigStore) List(ctx context.Context) ([]types.UserConfig, int, error) {
	keys, err := s.kv.List(ctx, userKeyPrefix)
	if err != nil {
		return nil, 0, err
	}
	configs := make([]types.UserConfig, 0, len(keys))
	skipped := 0
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			log.WithError(err).WithField("userID", parseUserID(key)).Warn("skipping unreadable record")
			skipped++
			continue
		}
		cfg, err := s.open(raw)
		if err != nil {
			log.WithError(err).WithField("userID", parseUserID(key)).Warn("skipping undecryptable record")
			skipped++
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, skipped, nil
}

func (s *ConfigStore) Delete(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, userKey(userID))
}

func (s *ConfigStore) open(raw string) (types.UserConfig, error) {
	var stored types.StoredUserConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return types.UserConfig{}, types.Err(types.ErrDecryption, err, "stored record is not valid JSON")
	}
	token, err := s.cipher.Open(stored.SealedToken)
	if err != nil {
		return types.UserConfig{}, fmt.Errorf("open envelope for %s: %w", stored.UserID, err)
	}
	return types.UserConfig{
		UserID:      stored.UserID,
		SecretToken: token,
		Destination: stored.Destination,
		Location:    stored.Location,
		ThresholdF:  stored.ThresholdF,
		RequireDry:  stored.RequireDry,
	}, nil
}

// Package cycle is the update orchestrator: it walks stored user configs (or a
// single caller-supplied one), fetches weather, evaluates the rule, and sets
// the Slack status when it fires. Per-user failures are counted, never fatal to
// a batch.
package cycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"swelter/internal/config"
	"swelter/internal/ports"
	"swelter/internal/rule"
	"swelter/internal/types"
)

// weatherCacheTTL is how long one location's observation is reused across
// users. Short enough that a scheduled cycle always sees fresh data.
const weatherCacheTTL = 3 * time.Minute

type Orchestrator struct {
	store   ports.ConfigStore
	weather ports.WeatherProvider
	status  ports.StatusSetter
	cfg     *config.App

	obsCache *TTL[string, types.Observation]
}

func NewOrchestrator(store ports.ConfigStore, weather ports.WeatherProvider,
	status ports.StatusSetter, cfg *config.App) *Orchestrator {
	return &Orchestrator{
		store:    store,
		weather:  weather,
		status:   status,
		cfg:      cfg,
		obsCache: NewTTL[string, types.Observation](),
	}
}

// AdHocCheck is a single caller-supplied configuration, evaluated once without
// touching the store.
type AdHocCheck struct {
	UserID      string
	Token       string
	Destination string
	Location    string
	ThresholdF  float64
	RequireDry  bool
}

// RunAll processes every stored user independently. Records the store could
// not decrypt are reported as skipped and counted as failures; any other
// per-user error (upstream, timeout) is caught here, logged, and counted. The
// decrypted token lives only for the span of that user's iteration.
func (o *Orchestrator) RunAll(ctx context.Context) types.Summary {
	summary := types.Summary{}

	configs, skipped, err := o.store.List(ctx)
	if err != nil {
		log.WithError(err).Error("cannot enumerate stored configs")
		summary.Failed++
		summary.Failures = append(summary.Failures, types.UserFailure{Reason: err.Error()})
		return summary
	}
	summary.Skipped = skipped
	summary.Failed += skipped
	for i := 0; i < skipped; i++ {
		summary.Failures = append(summary.Failures, types.UserFailure{Reason: "record skipped: cannot decrypt or parse"})
	}

	for _, uc := range configs {
		summary.Processed++
		activated, err := o.processOne(ctx, uc)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, types.UserFailure{UserID: uc.UserID, Reason: err.Error()})
			log.WithError(err).WithField("userID", uc.UserID).Warn("user cycle failed")
			continue
		}
		if activated {
			summary.Activated++
		}
	}
	return summary
}

// RunAdHoc evaluates one supplied configuration and propagates any failure to
// the caller as a typed error; the interactive driver needs to surface it.
func (o *Orchestrator) RunAdHoc(ctx context.Context, check AdHocCheck) (bool, types.Observation, error) {
	uc := types.UserConfig{
		UserID:      check.UserID,
		SecretToken: check.Token,
		Destination: check.Destination,
		Location:    check.Location,
		ThresholdF:  check.ThresholdF,
		RequireDry:  check.RequireDry,
	}
	obs, err := o.observe(ctx, uc.Location)
	if err != nil {
		return false, types.Observation{}, err
	}
	activated, err := o.apply(ctx, uc, obs)
	return activated, obs, err
}

func (o *Orchestrator) processOne(ctx context.Context, uc types.UserConfig) (bool, error) {
	obs, err := o.observe(ctx, uc.Location)
	if err != nil {
		return false, err
	}
	return o.apply(ctx, uc, obs)
}

// observe returns a fresh or recently cached observation for the location.
func (o *Orchestrator) observe(ctx context.Context, location string) (types.Observation, error) {
	if obs, ok := o.obsCache.Get(location); ok {
		return obs, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	obs, err := o.weather.Fetch(fetchCtx, location)
	if err != nil {
		return types.Observation{}, err
	}
	o.obsCache.Set(location, obs, weatherCacheTTL)
	return obs, nil
}

// apply runs the decision and, when it fires, the status update. Threshold 0
// falls back to the process default.
func (o *Orchestrator) apply(ctx context.Context, uc types.UserConfig, obs types.Observation) (bool, error) {
	threshold := uc.ThresholdF
	if threshold == 0 {
		threshold = o.cfg.DefaultThresholdF
	}

	activated := rule.ShouldActivate(obs, threshold, uc.RequireDry)
	log.WithFields(log.Fields{
		"userID":    uc.UserID,
		"location":  uc.Location,
		"tempF":     obs.TempF,
		"threshold": threshold,
		"activated": activated,
	}).Debug("evaluated rule")

	switch {
	case activated:
		setCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		if err := o.status.SetStatus(setCtx, uc.SecretToken, uc.Destination, o.cfg.StatusText, o.cfg.StatusEmoji); err != nil {
			return false, err
		}
		return true, nil

	case o.cfg.ClearOnCool:
		setCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		if err := o.status.SetStatus(setCtx, uc.SecretToken, uc.Destination, "", ""); err != nil {
			return false, err
		}
	}
	return false, nil
}

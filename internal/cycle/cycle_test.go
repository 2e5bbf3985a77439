package cycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"swelter/internal/backends/memory"
	"swelter/internal/config"
	"swelter/internal/secret"
	"swelter/internal/store"
	"swelter/internal/types"
)

type fakeProvider struct {
	mu    sync.Mutex
	obs   map[string]types.Observation
	errs  map[string]error
	calls int
}

func (f *fakeProvider) Fetch(_ context.Context, location string) (types.Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[location]; ok {
		return types.Observation{}, err
	}
	return f.obs[location], nil
}

type statusCall struct {
	token, user, text, emoji string
}

type fakeStatus struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
}

func (f *fakeStatus) SetStatus(_ context.Context, token, user, text, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, statusCall{token: token, user: user, text: text, emoji: emoji})
	return nil
}

type CycleTestSuite struct {
	suite.Suite

	kv       *memory.KV
	cfgStore *store.ConfigStore
	provider *fakeProvider
	status   *fakeStatus
	appCfg   *config.App
	orch     *Orchestrator
}

func TestCycleTestSuite(t *testing.T) {
	suite.Run(t, new(CycleTestSuite))
}

func (s *CycleTestSuite) SetupTest() {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	cipher, err := secret.New(key)
	s.Require().NoError(err)

	s.kv = memory.NewKV()
	s.cfgStore = store.New(s.kv, cipher)
	s.provider = &fakeProvider{obs: map[string]types.Observation{}, errs: map[string]error{}}
	s.status = &fakeStatus{}
	s.appCfg = &config.App{
		DefaultThresholdF: 82,
		StatusText:        "In a meeting",
		StatusEmoji:       ":meeting:",
		CallTimeout:       2 * time.Second,
	}
	s.orch = NewOrchestrator(s.cfgStore, s.provider, s.status, s.appCfg)
}

func (s *CycleTestSuite) storeUser(id, location string) types.UserConfig {
	cfg := types.UserConfig{
		UserID:      id,
		SecretToken: "xoxp-" + id,
		Destination: "U" + id,
		Location:    location,
		ThresholdF:  82,
		RequireDry:  true,
	}
	s.Require().NoError(s.cfgStore.Put(context.Background(), cfg))
	return cfg
}

func (s *CycleTestSuite) TestActivatesWhenHotAndDry() {
	s.storeUser("alice", "Boston,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 90, ConditionIDs: []int{800}}

	summary := s.orch.RunAll(context.Background())

	s.Equal(1, summary.Processed)
	s.Equal(1, summary.Activated)
	s.Equal(0, summary.Failed)
	s.Require().Len(s.status.calls, 1)
	s.Equal("xoxp-alice", s.status.calls[0].token)
	s.Equal("Ualice", s.status.calls[0].user)
	s.Equal("In a meeting", s.status.calls[0].text)
	s.Equal(":meeting:", s.status.calls[0].emoji)
}

func (s *CycleTestSuite) TestNoActivationWhenRaining() {
	s.storeUser("alice", "Boston,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 90, ConditionIDs: []int{501}}

	summary := s.orch.RunAll(context.Background())

	s.Equal(1, summary.Processed)
	s.Equal(0, summary.Activated)
	s.Equal(0, summary.Failed)
	s.Empty(s.status.calls)
}

func (s *CycleTestSuite) TestUpstreamFailureIsCountedNotFatal() {
	s.storeUser("alice", "Boston,US")
	s.provider.errs["Boston,US"] = &types.UpstreamError{API: "openweather", Status: 502, Body: "bad gateway"}

	summary := s.orch.RunAll(context.Background())

	s.Equal(1, summary.Processed)
	s.Equal(0, summary.Activated)
	s.Equal(1, summary.Failed)
	s.Require().Len(summary.Failures, 1)
	s.Equal("alice", summary.Failures[0].UserID)
	s.Empty(s.status.calls)
}

func (s *CycleTestSuite) TestBatchSurvivesOneCorruptRecord() {
	s.storeUser("u1", "Boston,US")
	s.storeUser("u2", "Lisbon,PT")
	s.storeUser("u3", "Austin,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 90}
	s.provider.obs["Austin,US"] = types.Observation{TempF: 95}

	// Wreck the second record underneath the store.
	s.Require().NoError(s.kv.Put(context.Background(), "USERCFG#u2",
		`{"user_id":"u2","sealed_token":"Z2FyYmFnZQ==","destination":"Uu2","location":"Lisbon,PT"}`))

	summary := s.orch.RunAll(context.Background())

	s.Equal(2, summary.Processed)
	s.Equal(2, summary.Activated)
	s.Equal(1, summary.Skipped)
	s.Equal(1, summary.Failed)
	s.Len(s.status.calls, 2)
}

func (s *CycleTestSuite) TestObservationSharedAcrossUsersInOneCycle() {
	s.storeUser("alice", "Boston,US")
	s.storeUser("bob", "Boston,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 88}

	summary := s.orch.RunAll(context.Background())

	s.Equal(2, summary.Activated)
	s.Equal(1, s.provider.calls)
}

func (s *CycleTestSuite) TestZeroThresholdFallsBackToDefault() {
	cfg := types.UserConfig{
		UserID:      "carol",
		SecretToken: "xoxp-carol",
		Destination: "Ucarol",
		Location:    "Oslo,NO",
	}
	s.Require().NoError(s.cfgStore.Put(context.Background(), cfg))
	s.provider.obs["Oslo,NO"] = types.Observation{TempF: 83}

	summary := s.orch.RunAll(context.Background())
	s.Equal(1, summary.Activated)
}

func (s *CycleTestSuite) TestClearOnCool() {
	s.appCfg.ClearOnCool = true
	s.storeUser("alice", "Boston,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 60}

	summary := s.orch.RunAll(context.Background())

	s.Equal(0, summary.Activated)
	s.Equal(0, summary.Failed)
	s.Require().Len(s.status.calls, 1)
	s.Equal("", s.status.calls[0].text)
	s.Equal("", s.status.calls[0].emoji)
}

func (s *CycleTestSuite) TestStatusFailureCounts() {
	s.storeUser("alice", "Boston,US")
	s.provider.obs["Boston,US"] = types.Observation{TempF: 90}
	s.status.err = &types.UpstreamError{API: "slack", Status: 200, PlatformCode: "invalid_auth"}

	summary := s.orch.RunAll(context.Background())

	s.Equal(0, summary.Activated)
	s.Equal(1, summary.Failed)
}

func (s *CycleTestSuite) TestAdHocActivation() {
	s.provider.obs["Paris,FR"] = types.Observation{TempF: 99}

	activated, obs, err := s.orch.RunAdHoc(context.Background(), AdHocCheck{
		UserID:      "dora",
		Token:       "xoxp-dora",
		Destination: "Udora",
		Location:    "Paris,FR",
		ThresholdF:  82,
	})

	s.NoError(err)
	s.True(activated)
	s.Equal(99.0, obs.TempF)
	s.Require().Len(s.status.calls, 1)
	s.Equal("Udora", s.status.calls[0].user)
}

func (s *CycleTestSuite) TestAdHocPropagatesTypedError() {
	s.provider.errs["Paris,FR"] = &types.UpstreamError{API: "openweather", Status: 404, Body: "city not found"}

	activated, _, err := s.orch.RunAdHoc(context.Background(), AdHocCheck{
		UserID:      "dora",
		Token:       "xoxp-dora",
		Destination: "Udora",
		Location:    "Paris,FR",
	})

	s.False(activated)
	s.ErrorIs(err, types.ErrUpstream)
}

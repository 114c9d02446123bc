package registry

import (
	"time"

	"github.com/code-payments/code-idl/pkg/config"
	"github.com/code-payments/code-idl/pkg/config/env"
	"github.com/code-payments/code-idl/pkg/config/memory"
	"github.com/code-payments/code-idl/pkg/config/wrapper"
)

const (
	envConfigPrefix = "IDL_REGISTRY_"

	CacheBudgetConfigEnvName = envConfigPrefix + "CACHE_BUDGET"
	defaultCacheBudget       = 64 << 20

	MaxDataSizeConfigEnvName = envConfigPrefix + "MAX_DATA_SIZE"
	defaultMaxDataSize       = 10 << 20

	ShowHiddenConfigEnvName = envConfigPrefix + "SHOW_HIDDEN"
	defaultShowHidden       = false

	LockStripesConfigEnvName = envConfigPrefix + "LOCK_STRIPES"
	defaultLockStripes       = 64

	StoreTimeoutConfigEnvName = envConfigPrefix + "STORE_TIMEOUT"
	defaultStoreTimeout       = 5 * time.Second
)

type conf struct {
	cacheBudget  config.Uint64
	maxDataSize  config.Uint64
	showHidden   config.Bool
	lockStripes  config.Uint64
	storeTimeout config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			cacheBudget:  env.NewUint64Config(CacheBudgetConfigEnvName, defaultCacheBudget),
			maxDataSize:  env.NewUint64Config(MaxDataSizeConfigEnvName, defaultMaxDataSize),
			showHidden:   env.NewBoolConfig(ShowHiddenConfigEnvName, defaultShowHidden),
			lockStripes:  env.NewUint64Config(LockStripesConfigEnvName, defaultLockStripes),
			storeTimeout: env.NewDurationConfig(StoreTimeoutConfigEnvName, defaultStoreTimeout),
		}
	}
}

type testOverrides struct {
	cacheBudget  uint64
	maxDataSize  uint64
	showHidden   bool
	lockStripes  uint64
	storeTimeout time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			cacheBudget:  wrapper.NewUint64Config(memory.NewConfig(overrides.cacheBudget), defaultCacheBudget),
			maxDataSize:  wrapper.NewUint64Config(memory.NewConfig(overrides.maxDataSize), defaultMaxDataSize),
			showHidden:   wrapper.NewBoolConfig(memory.NewConfig(overrides.showHidden), defaultShowHidden),
			lockStripes:  wrapper.NewUint64Config(memory.NewConfig(overrides.lockStripes), defaultLockStripes),
			storeTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.storeTimeout), defaultStoreTimeout),
		}
	}
}

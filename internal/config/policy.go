package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy holds business tunables that operators may change without a restart.
type Policy struct {
	Pricing   PricingPolicy   `mapstructure:"pricing"`
	Reconcile ReconcilePolicy `mapstructure:"reconcile"`
}

type PricingPolicy struct {
	// DefaultProfitRate applies when an admin prices an order without a rate
	// and the item has none yet.
	DefaultProfitRate float64 `mapstructure:"defaultProfitRate"`
}

type ReconcilePolicy struct {
	LockTTL time.Duration `mapstructure:"lockTTL"`
}

func DefaultPolicy() Policy {
	return Policy{
		Pricing: PricingPolicy{
			DefaultProfitRate: 0,
		},
		Reconcile: ReconcilePolicy{
			LockTTL: 30 * time.Second,
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

// NewPolicyHolder reads shipledger.yml from the configured paths and watches it.
// A missing file falls back to DefaultPolicy.
func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v := viper.New()
	v.SetConfigName("shipledger")
	v.SetConfigType("yml")
	for _, path := range cfg.PolicyPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("SHIPLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("pricing.defaultProfitRate", defaults.Pricing.DefaultProfitRate)
	v.SetDefault("reconcile.lockTTL", defaults.Reconcile.LockTTL.String())

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	var policy Policy
	if err := v.Unmarshal(&policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !found {
		log.Info("policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.Pricing.DefaultProfitRate < 0 {
		return errors.New("pricing.defaultProfitRate cannot be negative")
	}
	if p.Reconcile.LockTTL <= 0 {
		return errors.New("reconcile.lockTTL must be positive")
	}
	return nil
}

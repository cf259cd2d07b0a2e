// Package registry owns the integration instances of every (user, platform)
// pair and the config each platform currently runs with.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/maheshrc27/crosspost/internal/integration"
	"github.com/maheshrc27/crosspost/internal/models"
)

var (
	ErrPlatformNotRegistered = errors.New("platform not registered")
	ErrPlatformDisabled      = errors.New("platform disabled")
	ErrConfigMismatch        = errors.New("config does not match platform")
	ErrAlreadyRegistered     = errors.New("platform already registered")
)

type key struct {
	platform models.Platform
	userID   int64
}

type registration struct {
	constructor integration.Constructor
	cfg         models.PlatformConfig
}

// Instance describes one cached integration.
type Instance struct {
	Platform    models.Platform
	UserID      int64
	Integration integration.Integration
}

type Registry struct {
	deps integration.Dependencies

	mu        sync.RWMutex
	platforms map[models.Platform]*registration
	instances map[key]integration.Integration

	locksMu sync.Mutex
	locks   map[key]*sync.Mutex
}

func New(deps integration.Dependencies) *Registry {
	return &Registry{
		deps:      deps,
		platforms: make(map[models.Platform]*registration),
		instances: make(map[key]integration.Integration),
		locks:     make(map[key]*sync.Mutex),
	}
}

// Register maps a platform to its constructor and initial config. It is a
// one-time operation per platform.
func (r *Registry) Register(platform models.Platform, constructor integration.Constructor, cfg models.PlatformConfig) error {
	if constructor == nil {
		return fmt.Errorf("%s: constructor is nil", platform)
	}
	if cfg.Platform != platform {
		return fmt.Errorf("%w: registering %s with config for %s", ErrConfigMismatch, platform, cfg.Platform)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.platforms[platform]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, platform)
	}
	cfg.Version = 1
	r.platforms[platform] = &registration{constructor: constructor, cfg: cfg}
	slog.Info("platform registered", "platform", platform, "type", cfg.Type, "enabled", cfg.Enabled)
	return nil
}

// GetIntegration returns the cached instance for the pair, building it on
// first use. Any failure yields nil.
func (r *Registry) GetIntegration(platform models.Platform, userID int64) integration.Integration {
	inst, err := r.Resolve(platform, userID)
	if err != nil {
		slog.Warn("integration unavailable", "platform", platform, "user_id", userID, "error", err)
		return nil
	}
	return inst
}

// Resolve is GetIntegration with the reason an integration is unavailable.
func (r *Registry) Resolve(platform models.Platform, userID int64) (integration.Integration, error) {
	k := key{platform: platform, userID: userID}

	r.mu.RLock()
	inst, ok := r.instances[k]
	r.mu.RUnlock()
	if ok {
		return inst, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[k]; ok {
		return inst, nil
	}
	reg, ok := r.platforms[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlatformNotRegistered, platform)
	}
	if !reg.cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrPlatformDisabled, platform)
	}

	inst, err := reg.constructor(reg.cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("constructing %s integration: %w", platform, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("constructing %s integration: constructor returned nil", platform)
	}
	if inst.Platform() != platform {
		_ = inst.Close()
		return nil, fmt.Errorf("%w: constructor for %s built %s", ErrConfigMismatch, platform, inst.Platform())
	}

	r.instances[k] = inst
	return inst, nil
}

// UpdateConfig replaces a platform's config and destroys every instance built
// from the old one. New instances are created lazily.
func (r *Registry) UpdateConfig(platform models.Platform, cfg models.PlatformConfig) error {
	if cfg.Platform != platform {
		return fmt.Errorf("%w: updating %s with config for %s", ErrConfigMismatch, platform, cfg.Platform)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	r.mu.Lock()
	reg, ok := r.platforms[platform]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlatformNotRegistered, platform)
	}
	cfg.Version = reg.cfg.Version + 1
	reg.cfg = cfg
	evicted := r.removeLocked(func(k key) bool { return k.platform == platform })
	r.mu.Unlock()

	r.closeAll(evicted)
	slog.Info("platform config updated", "platform", platform, "version", cfg.Version, "evicted", len(evicted))
	return nil
}

// CleanupUser destroys all of a user's instances and returns how many there were.
func (r *Registry) CleanupUser(userID int64) int {
	r.mu.Lock()
	evicted := r.removeLocked(func(k key) bool { return k.userID == userID })
	r.mu.Unlock()

	r.closeAll(evicted)
	if len(evicted) > 0 {
		slog.Info("user integrations cleaned up", "user_id", userID, "count", len(evicted))
	}
	return len(evicted)
}

// Evict destroys a single cached instance. It must not be called while
// holding the pair's Lock.
func (r *Registry) Evict(platform models.Platform, userID int64) bool {
	k := key{platform: platform, userID: userID}

	r.mu.Lock()
	evicted := r.removeLocked(func(candidate key) bool { return candidate == k })
	r.mu.Unlock()

	r.closeAll(evicted)
	return len(evicted) > 0
}

// EvictInstance is Evict guarded by identity: it does nothing when the pair's
// cached instance is no longer inst, so a rebuilt replacement survives.
func (r *Registry) EvictInstance(platform models.Platform, userID int64, inst integration.Integration) bool {
	k := key{platform: platform, userID: userID}

	r.mu.Lock()
	evicted := r.removeLocked(func(candidate key) bool {
		return candidate == k && r.instances[candidate] == inst
	})
	r.mu.Unlock()

	r.closeAll(evicted)
	return len(evicted) > 0
}

// Lock serialises calls for one (user, platform) pair and returns the unlock
// function.
func (r *Registry) Lock(platform models.Platform, userID int64) func() {
	k := key{platform: platform, userID: userID}

	r.locksMu.Lock()
	l, ok := r.locks[k]
	if !ok {
		l = &sync.Mutex{}
		r.locks[k] = l
	}
	r.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (r *Registry) Config(platform models.Platform) (models.PlatformConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.platforms[platform]
	if !ok {
		return models.PlatformConfig{}, false
	}
	return reg.cfg, true
}

// Platforms returns the current config of every registered platform sorted
// by id.
func (r *Registry) Platforms() []models.PlatformConfig {
	r.mu.RLock()
	out := make([]models.PlatformConfig, 0, len(r.platforms))
	for _, reg := range r.platforms {
		out = append(out, reg.cfg)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

func (r *Registry) Instances() []Instance {
	r.mu.RLock()
	out := make([]Instance, 0, len(r.instances))
	for k, inst := range r.instances {
		out = append(out, Instance{Platform: k.platform, UserID: k.userID, Integration: inst})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// Close destroys every cached instance. Registrations are kept.
func (r *Registry) Close() {
	r.mu.Lock()
	evicted := r.removeLocked(func(key) bool { return true })
	r.mu.Unlock()

	r.closeAll(evicted)
}

func (r *Registry) removeLocked(match func(key) bool) map[key]integration.Integration {
	evicted := make(map[key]integration.Integration)
	for k, inst := range r.instances {
		if match(k) {
			evicted[k] = inst
			delete(r.instances, k)
		}
	}
	return evicted
}

// closeAll takes each pair's lock before closing, so in-flight calls finish
// first.
func (r *Registry) closeAll(evicted map[key]integration.Integration) {
	for k, inst := range evicted {
		unlock := r.Lock(k.platform, k.userID)
		if err := inst.Close(); err != nil {
			slog.Warn("closing integration", "platform", k.platform, "user_id", k.userID, "error", err)
		}
		unlock()
	}
}

package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/config"
)

// Deps are the shared collaborators handed to every provider creator.
type Deps struct {
	Logger  *zap.Logger
	Weights WeightsStore
}

// ProviderCreator is a function that creates an engine from configuration
type ProviderCreator func(cfg *config.Config, deps Deps) (Engine, error)

// providerRegistry stores provider creation functions
var (
	providerRegistry = make(map[string]ProviderCreator)
	registryMutex    sync.RWMutex
)

// RegisterProvider registers a provider creator function
func RegisterProvider(providerType string, creator ProviderCreator) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	providerRegistry[providerType] = creator
}

// GetProviderCreator returns the creator function for a provider type
func GetProviderCreator(providerType string) (ProviderCreator, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	creator, ok := providerRegistry[providerType]
	if !ok {
		return nil, fmt.Errorf("provider type %s not registered", providerType)
	}
	return creator, nil
}

// ListRegisteredProviders returns all registered provider types, sorted
func ListRegisteredProviders() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	providers := lo.Keys(providerRegistry)
	sort.Strings(providers)
	return providers
}

// NewEngine creates the configured engine and probes its capability. Any
// failure here is marked ErrEngineUnavailable.
func NewEngine(cfg *config.Config, deps Deps) (Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	creator, err := GetProviderCreator(cfg.Engine)
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrEngineUnavailable,
			fmt.Errorf("%w (registered: %v)", err, ListRegisteredProviders()))
	}

	engine, err := creator(cfg, deps)
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrEngineUnavailable, err)
	}

	if err := engine.Available(); err != nil {
		return nil, apperrors.Mark(apperrors.ErrEngineUnavailable, err)
	}

	info := engine.GetProviderInfo()
	deps.Logger.Debug("engine ready",
		zap.String("engine", info.Name),
		zap.String("type", string(info.Type)))
	return engine, nil
}

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"whisper-stt/internal/app/api/provider"
)

// MockEngine is a testify mock of provider.Engine.
type MockEngine struct {
	mock.Mock
	Info provider.ProviderInfo
}

// NewMockEngine creates a MockEngine reporting the given name.
func NewMockEngine(name string) *MockEngine {
	return &MockEngine{
		Info: provider.ProviderInfo{
			Name:        name,
			DisplayName: name + " (mock)",
			Type:        provider.ProviderTypeLocal,
		},
	}
}

func (m *MockEngine) GetProviderInfo() provider.ProviderInfo {
	return m.Info
}

func (m *MockEngine) Available() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEngine) LoadModel(ctx context.Context, size string) (provider.Model, error) {
	args := m.Called(ctx, size)
	model, _ := args.Get(0).(provider.Model)
	return model, args.Error(1)
}

// MockModel is a testify mock of provider.Model.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) Transcribe(ctx context.Context, inputFilePath string) (provider.Result, error) {
	args := m.Called(ctx, inputFilePath)
	result, _ := args.Get(0).(provider.Result)
	return result, args.Error(1)
}

func (m *MockModel) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EngineReturning wires a MockEngine whose "small" model transcribes any
// path to result. Available is optional; the runner never calls it.
func EngineReturning(name string, result provider.Result) (*MockEngine, *MockModel) {
	model := &MockModel{}
	model.On("Transcribe", mock.Anything, mock.Anything).Return(result, nil)
	model.On("Close").Return(nil)

	engine := NewMockEngine(name)
	engine.On("Available").Return(nil).Maybe()
	engine.On("LoadModel", mock.Anything, "small").Return(model, nil)
	return engine, model
}

// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/mocks"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/store"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""

	// Install a silent logger first; the InitializeLogger call in PersistentPreRunE is then a no-op.
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"}, zapcore.AddSync(io.Discard))
	t.Cleanup(observability.ResetForTest)

	// Keep the test binary's working directory from supplying a config.yaml.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// executeCommand runs a fresh command tree with deps and returns everything it printed.
func executeCommand(t *testing.T, deps dependencies, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(deps)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes content to a config file that is removed with the test.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fakeBrowser is a sessionProvider over in-memory pages.
type fakeBrowser struct {
	*mocks.FakeProvider
	shutdowns atomic.Int32
}

func (f *fakeBrowser) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	return nil
}

func newFakeBrowser(setup func(p *mocks.FakePage)) *fakeBrowser {
	return &fakeBrowser{FakeProvider: &mocks.FakeProvider{Setup: setup}}
}

// appPage serves both built-in flows: a cart whose payment button mounts the shipping
// form, and a theme switch that toggles the dark class on the root element.
func appPage(p *mocks.FakePage) {
	root := p.AddOne(&mocks.FakeElement{Tag: "html"})
	p.Add(
		&mocks.FakeElement{
			Tag: "button", Role: "switch", Name: "Dark mode",
			OnClick: func(p *mocks.FakePage) { p.ToggleClass(root, "dark") },
		},
		&mocks.FakeElement{
			Tag: "button", Role: "button", Name: "Proceed to Payment",
			OnClick: func(p *mocks.FakePage) {
				p.AddOne(&mocks.FakeElement{Tag: "h2", Role: "heading", Name: "Shipping Address"})
			},
		},
	)
}

// mockStore is a testify mock of outcomeStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) RecordOutcome(ctx context.Context, o *schemas.ScenarioOutcome) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockStore) RecentRuns(ctx context.Context, scenario string, limit int) ([]store.RunSummary, error) {
	args := m.Called(ctx, scenario, limit)
	runs, _ := args.Get(0).([]store.RunSummary)
	return runs, args.Error(1)
}

// mockStoreProvider hands out a fixed store, or fails.
type mockStoreProvider struct {
	store   outcomeStore
	err     error
	created atomic.Int32
	closed  atomic.Int32
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg *config.Config) (outcomeStore, func(), error) {
	p.created.Add(1)
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.closed.Add(1) }, nil
}

func testDeps(browser *fakeBrowser, stores storeProvider) dependencies {
	if stores == nil {
		stores = &mockStoreProvider{}
	}
	return dependencies{
		stores: stores,
		browsers: func(cfg *config.Config, logger *zap.Logger) sessionProvider {
			return browser
		},
	}
}

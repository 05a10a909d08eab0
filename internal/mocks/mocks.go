// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// -- Page Mock --

// MockPage mocks schemas.Page for tests that care about the exact calls made.
type MockPage struct {
	mock.Mock
}

var _ schemas.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Candidates(ctx context.Context, loc schemas.Locator) ([]schemas.ElementInfo, error) {
	args := m.Called(ctx, loc)
	els, _ := args.Get(0).([]schemas.ElementInfo)
	return els, args.Error(1)
}

func (m *MockPage) Describe(ctx context.Context, id int64) (schemas.ElementInfo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schemas.ElementInfo), args.Error(1)
}

func (m *MockPage) Click(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	args := m.Called(ctx, fullPage)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// -- Session Provider Mock --

// MockSessionProvider mocks schemas.SessionProvider.
type MockSessionProvider struct {
	mock.Mock
}

var _ schemas.SessionProvider = (*MockSessionProvider)(nil)

func (m *MockSessionProvider) AcquireSession(ctx context.Context, baseURL string) (schemas.Session, error) {
	args := m.Called(ctx, baseURL)
	s, _ := args.Get(0).(schemas.Session)
	return s, args.Error(1)
}

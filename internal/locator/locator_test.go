package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
	"github.com/xkilldash9x/uiverify/internal/mocks"
)

func checkoutPage() *mocks.FakePage {
	p := mocks.NewFakePage()
	p.Add(
		&mocks.FakeElement{Tag: "html"},
		&mocks.FakeElement{Tag: "button", Role: "button", Name: "Proceed to Payment"},
		&mocks.FakeElement{Tag: "button", Role: "button", Name: "Proceed  to\nPayment later"},
		&mocks.FakeElement{Tag: "button", Role: "button", Name: "Cancel"},
		&mocks.FakeElement{Tag: "h1", Role: "heading", Name: "Your Cart"},
		&mocks.FakeElement{Tag: "div", Role: "button", Name: "Hidden Pay", Hidden: true},
	)
	return p
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	page := checkoutPage()

	tests := []struct {
		name  string
		loc   schemas.Locator
		names []string
	}{
		{name: "role only", loc: schemas.ByRole("button"), names: []string{"Proceed to Payment", "Proceed  to\nPayment later", "Cancel"}},
		{name: "substring ignores case and whitespace", loc: schemas.ByRoleName("button", "proceed TO payment"), names: []string{"Proceed to Payment", "Proceed  to\nPayment later"}},
		{name: "exact", loc: schemas.ByRoleName("button", "Proceed to Payment").Exact(), names: []string{"Proceed to Payment"}},
		{name: "exact normalizes whitespace", loc: schemas.ByRoleName("button", " Proceed to Payment later ").Exact(), names: []string{"Proceed  to\nPayment later"}},
		{name: "exact is case sensitive", loc: schemas.ByRoleName("button", "cancel").Exact(), names: []string{}},
		{name: "pattern", loc: schemas.Locator{Role: "button", Name: "^Proceed.*Payment$", MatchMode: schemas.MatchPattern}, names: []string{"Proceed to Payment"}},
		{name: "hidden excluded", loc: schemas.ByRoleName("button", "Hidden Pay"), names: []string{}},
		{name: "hidden included on request", loc: schemas.Locator{Role: "button", Name: "Hidden Pay", IncludeHidden: true}, names: []string{"Hidden Pay"}},
		{name: "css", loc: schemas.ByCSS("html"), names: []string{""}},
		{name: "no role match", loc: schemas.ByRole("switch"), names: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Resolve(ctx, page, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.names, set.Names())
		})
	}
}

func TestResolve_IsLive(t *testing.T) {
	ctx := context.Background()
	page := mocks.NewFakePage()
	loc := schemas.ByRoleName("heading", "Shipping Address")

	set, err := Resolve(ctx, page, loc)
	require.NoError(t, err)
	assert.Empty(t, set, "zero matches is an empty set, not an error")

	el := page.AddOne(&mocks.FakeElement{Tag: "h2", Role: "heading", Name: "Shipping Address"})
	set, err = Resolve(ctx, page, loc)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, el.ID(), set[0].ID)

	page.Remove(el)
	set, err = Resolve(ctx, page, loc)
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestResolve_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid locator", func(t *testing.T) {
		_, err := Resolve(ctx, mocks.NewFakePage(), schemas.Locator{})
		assert.True(t, failure.IsKind(err, failure.Resolution))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := Resolve(ctx, mocks.NewFakePage(), schemas.Locator{Role: "button", Name: "(", MatchMode: schemas.MatchPattern})
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Resolution))
		assert.Contains(t, err.Error(), "invalid name pattern")
	})

	t.Run("page error", func(t *testing.T) {
		page := mocks.NewFakePage()
		page.CandidatesErr = errors.New("target crashed")
		_, err := Resolve(ctx, page, schemas.ByRole("button"))
		assert.True(t, failure.IsKind(err, failure.Resolution))
		assert.ErrorIs(t, err, page.CandidatesErr)
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Resolve(cancelled, checkoutPage(), schemas.ByRole("button"))
		assert.Equal(t, failure.Cancelled, failure.KindOf(err))
	})
}

func TestResolveOne(t *testing.T) {
	ctx := context.Background()
	page := checkoutPage()

	t.Run("unique", func(t *testing.T) {
		el, err := ResolveOne(ctx, page, schemas.ByRoleName("button", "Cancel"))
		require.NoError(t, err)
		assert.Equal(t, "Cancel", el.Name)
	})

	t.Run("none is a resolution failure", func(t *testing.T) {
		_, err := ResolveOne(ctx, page, schemas.ByRoleName("button", "Checkout"))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Resolution))
		assert.Contains(t, err.Error(), `role=button[name="Checkout"]`)
	})

	t.Run("many is an ambiguity failure", func(t *testing.T) {
		_, err := ResolveOne(ctx, page, schemas.ByRoleName("button", "Proceed"))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Ambiguity))
		assert.Contains(t, err.Error(), "2 elements match")
		assert.Contains(t, err.Error(), `"Proceed to Payment"`)
	})
}

func TestResolve_WithMockPage(t *testing.T) {
	ctx := context.Background()
	page := &mocks.MockPage{}
	loc := schemas.ByRoleName("switch", "dark")
	page.On("Candidates", ctx, loc).Return([]schemas.ElementInfo{
		{ID: 7, Role: "switch", Name: "Dark mode"},
		{ID: 8, Role: "switch", Name: "Notifications"},
	}, nil).Once()

	el, err := ResolveOne(ctx, page, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(7), el.ID)
	page.AssertExpectations(t)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(schemas.ByRoleName("button", "Pay")))
	assert.NoError(t, Check(schemas.ByCSS("html")))
	assert.True(t, failure.IsKind(Check(schemas.Locator{Role: "button", CSS: "html"}), failure.Resolution))
	assert.True(t, failure.IsKind(Check(schemas.Locator{Role: "button", Name: "[", MatchMode: schemas.MatchPattern}), failure.Resolution))
}

package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
	"github.com/xkilldash9x/uiverify/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func infoOf(t *testing.T, p *mocks.FakePage, el *mocks.FakeElement) schemas.ElementInfo {
	t.Helper()
	info, err := p.Describe(context.Background(), el.ID())
	require.NoError(t, err)
	return info
}

func TestDispatcher_Click(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(zaptest.NewLogger(t), 0)

	t.Run("clicks and runs the handler", func(t *testing.T) {
		p := mocks.NewFakePage()
		var clicked bool
		pay := p.AddOne(&mocks.FakeElement{Tag: "button", Role: "button", Name: "Pay", OnClick: func(*mocks.FakePage) { clicked = true }})

		require.NoError(t, d.Click(ctx, p, infoOf(t, p, pay)))
		assert.True(t, clicked)
		assert.Equal(t, 1, p.Clicks())
	})

	t.Run("does not wait for a detached element", func(t *testing.T) {
		p := mocks.NewFakePage()
		pay := p.AddOne(&mocks.FakeElement{Tag: "button", Role: "button", Name: "Pay"})
		info := infoOf(t, p, pay)
		p.Remove(pay)

		start := time.Now()
		err := d.Click(ctx, p, info)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
		assert.True(t, failure.IsKind(err, failure.Interaction))
		assert.Contains(t, err.Error(), `button "Pay"`)
		assert.Contains(t, err.Error(), "detached")
	})

	t.Run("covered", func(t *testing.T) {
		p := mocks.NewFakePage()
		pay := p.AddOne(&mocks.FakeElement{Tag: "button", Role: "button", Name: "Pay", CoveredBy: "div#overlay.modal"})

		err := d.Click(ctx, p, infoOf(t, p, pay))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Interaction))
		assert.Contains(t, err.Error(), "covered by <div#overlay.modal>")
		assert.Zero(t, p.Clicks())
	})

	t.Run("zero size", func(t *testing.T) {
		p := mocks.NewFakePage()
		el := p.AddOne(&mocks.FakeElement{Tag: "a", Role: "link", Name: "Terms"})
		p.Mutate(func() { el.Box = schemas.Rect{X: 5, Y: 5} })

		err := d.Click(ctx, p, infoOf(t, p, el))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Interaction))
		assert.Contains(t, err.Error(), "zero size")
	})

	t.Run("cancelled", func(t *testing.T) {
		p := mocks.NewFakePage()
		pay := p.AddOne(&mocks.FakeElement{Tag: "button", Role: "button", Name: "Pay"})
		info := infoOf(t, p, pay)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := d.Click(cctx, p, info)
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Cancelled))
		assert.Zero(t, p.Clicks())
	})

	t.Run("unclassified page errors become interaction failures", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Click", mock.Anything, int64(7)).Return(errors.New("cdp: target closed")).Once()

		err := d.Click(ctx, page, schemas.ElementInfo{ID: 7, Tag: "button"})
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Interaction))
		assert.Contains(t, err.Error(), "<button>")
		assert.Contains(t, err.Error(), "target closed")
		page.AssertExpectations(t)
	})
}

func TestDispatcher_SlowMo(t *testing.T) {
	ctx := context.Background()
	const slowMo = 60 * time.Millisecond
	d := NewDispatcher(zaptest.NewLogger(t), slowMo)

	p := mocks.NewFakePage()
	btn := p.AddOne(&mocks.FakeElement{Tag: "button", Role: "button", Name: "Next"})
	info := infoOf(t, p, btn)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Click(ctx, p, info))
	}
	// The first action goes immediately, the next two are paced.
	assert.GreaterOrEqual(t, time.Since(start), 2*slowMo-10*time.Millisecond)
	assert.Equal(t, 3, p.Clicks())

	t.Run("wait honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
		defer cancel()
		err := d.Click(cctx, p, info)
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.Cancelled))
	})
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, `button "Pay"`, describe(schemas.ElementInfo{Role: "button", Name: "Pay"}))
	assert.Equal(t, "switch", describe(schemas.ElementInfo{Role: "switch"}))
	assert.Equal(t, "<html>", describe(schemas.ElementInfo{Tag: "html"}))
	assert.Equal(t, "element 3", describe(schemas.ElementInfo{ID: 3}))
}

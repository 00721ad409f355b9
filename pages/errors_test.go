package pages

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cp-tickets/models"
	"cp-tickets/utils"
)

func TestWaitErrorUnwrap(t *testing.T) {
	err := error(&WaitError{Target: "train row", Timeout: time.Second, Err: ErrNoMatchingRow})

	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, ErrNoMatchingRow)
	assert.Equal(t, "waiting for train row: timed out after 1s: no matching train row", err.Error())

	wrapped := fmt.Errorf("results: %w", err)
	var we *WaitError
	require.ErrorAs(t, wrapped, &we)
	assert.Equal(t, "train row", we.Target)
}

func TestWaitFailure(t *testing.T) {
	assert.NoError(t, waitFailure("x", "#x", time.Second, nil))

	timeout := waitFailure("continue button", "#buttonNext", time.Second, context.DeadlineExceeded)
	assert.True(t, IsTimeout(timeout))
	assert.Equal(t, "waiting for continue button (#buttonNext): timed out after 1s", timeout.Error())

	other := waitFailure("continue button", "#buttonNext", time.Second, errors.New("node detached"))
	assert.False(t, IsTimeout(other))
	assert.EqualError(t, other, "continue button: node detached")
}

type fakeTab struct {
	ctx context.Context
}

func (f fakeTab) Context() context.Context { return f.ctx }

func (f fakeTab) FollowNewTab(trigger func() error, _ time.Duration) (bool, error) {
	return false, trigger()
}

func (f fakeTab) Console() []models.ConsoleEntry { return nil }

func newTestBase(ctx context.Context) *BasePage {
	return NewBasePage(fakeTab{ctx: ctx}, nil, utils.NewLogger(), Options{PollInterval: time.Millisecond})
}

func TestPoll(t *testing.T) {
	b := newTestBase(context.Background())

	calls := 0
	err := b.poll(time.Second, func(*BasePage) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = b.poll(5*time.Millisecond, func(*BasePage) (bool, error) { return false, ErrNoMatchingRow })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNoMatchingRow)
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newTestBase(ctx)

	err := b.poll(time.Minute, func(*BasePage) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveArtifactsWithoutStore(t *testing.T) {
	b := newTestBase(context.Background())
	_, err := b.SaveArtifacts("x")
	assert.Error(t, err)
}

func TestPollCapsEachCheckByTimeLeft(t *testing.T) {
	b := NewBasePage(fakeTab{ctx: context.Background()}, nil, utils.NewLogger(), Options{
		Timeout:        15 * time.Second,
		SpinnerTimeout: 6 * time.Second,
		PollInterval:   time.Millisecond,
	})

	var seen []time.Duration
	err := b.poll(50*time.Millisecond, func(step *BasePage) (bool, error) {
		seen = append(seen, step.timeout)
		assert.LessOrEqual(t, step.spinnerTimeout, step.timeout)
		return false, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotEmpty(t, seen)

	for _, d := range seen {
		assert.LessOrEqual(t, d, 50*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Millisecond)
	}
	assert.Equal(t, 15*time.Second, b.timeout, "the shared page keeps its own timeout")
}

func TestWithinKeepsShorterPageTimeout(t *testing.T) {
	b := NewBasePage(fakeTab{ctx: context.Background()}, nil, utils.NewLogger(), Options{
		Timeout:      2 * time.Second,
		PollInterval: 100 * time.Millisecond,
	})

	assert.Equal(t, 2*time.Second, b.within(time.Minute).timeout)
	assert.Equal(t, 500*time.Millisecond, b.within(500*time.Millisecond).timeout)
	assert.Equal(t, 100*time.Millisecond, b.within(-time.Second).timeout)
}

func TestRowSearchFailure(t *testing.T) {
	timeout := 3 * time.Second

	exhausted := fmt.Errorf("%w: %w", context.DeadlineExceeded,
		fmt.Errorf("%w: %s", ErrNoMatchingRow, ap125))
	err := rowSearchFailure(ap125, timeout, exhausted)
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, ErrNoMatchingRow)
	var we *WaitError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "train row AP 125 12:09→14:48", we.Target)

	readFailed := fmt.Errorf("%w: %w", context.DeadlineExceeded, errors.New("read html: target closed"))
	err = rowSearchFailure(ap125, timeout, readFailed)
	assert.True(t, IsTimeout(err))
	assert.NotErrorIs(t, err, ErrNoMatchingRow)

	err = rowSearchFailure(ap125, timeout, context.Canceled)
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.Canceled)
}

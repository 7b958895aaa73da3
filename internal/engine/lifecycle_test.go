package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/apex/internal/domain"
)

func testLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		AutoRetryUnfilled: true,
		UnfilledWaitTime:  20 * time.Millisecond,
		PollInterval:      time.Millisecond,
		MaxEditAttempts:   10,
		EntryOffset:       12.0,
		MaxRiskMultiplier: 2.0,
	}
}

func TestOrderLifecycle_FillRecomputesTakeProfit(t *testing.T) {
	ex := newFakeExchange()
	ex.fillQueue = []domain.FillStatus{{Filled: true, ActualEntry: 95010}}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()
	tc.Intent.TakeProfit = 97000 // 손익비 2:1

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, pos)

	assert.Equal(t, domain.Filled, tc.State)
	assert.Equal(t, 95010.0, pos.ActualEntry)
	// 손익비 2:1 보존: 95010 + 2 * (95010 - 94000) = 97030
	assert.InDelta(t, 97030.0, pos.AdjustedTP, 1e-6)
	// 실제 리스크 = |95010 - 94000| * (86 / 95010)
	assert.InDelta(t, 1010.0*86.0/95010.0, pos.ActualRisk, 1e-6)
}

func TestOrderLifecycle_RiskGrowthWarning(t *testing.T) {
	ex := newFakeExchange()
	// 계획에서 멀리 떨어진 체결: 실제 리스크 1600*86/95600 ≈ 1.44 USDT가
	// 계획 리스크 1000*86/95000 ≈ 0.91 USDT의 150%를 초과합니다
	ex.fillQueue = []domain.FillStatus{{Filled: true, ActualEntry: 95600}}
	notifier := &fakeNotifier{}

	l := NewOrderLifecycle(ex, notifier, nil, testLifecycleConfig())
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	assert.InDelta(t, 1600.0*86.0/95600.0, pos.ActualRisk, 1e-6)

	// 치명적이지 않지만 눈에 띄게 기록/알림되어야 합니다
	assert.NotEmpty(t, tc.Warnings)
	assert.Equal(t, 1, notifier.warningCount())
	assert.Equal(t, domain.Filled, tc.State)
}

func TestOrderLifecycle_FillAtPlanKeepsTakeProfit(t *testing.T) {
	ex := newFakeExchange()
	ex.fillQueue = []domain.FillStatus{{Filled: true, ActualEntry: 95000}}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()
	tc.Intent.TakeProfit = 97000

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, 97000.0, pos.AdjustedTP)
}

func TestOrderLifecycle_RepriceThenFill(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95200
	ex.fillAfterEdit = &domain.FillStatus{Filled: true, ActualEntry: 95188}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)

	// 롱 재가격: 현재가 95200 - 오프셋 12 = 95188
	require.Len(t, ex.editCalls, 1)
	assert.Equal(t, 95188.0, ex.editCalls[0].Entry)
	assert.Equal(t, 0, ex.editCalls[0].Quantity) // 수량은 유지
	assert.Equal(t, 1, tc.EditCount)
	assert.Equal(t, 95188.0, tc.Intent.Entry)
	assert.Equal(t, 95188.0, pos.ActualEntry)
	assert.Equal(t, domain.Filled, tc.State)
}

func TestOrderLifecycle_RiskMultiplierGuard(t *testing.T) {
	ex := newFakeExchange()
	// 새 진입가 97588은 원래 손절 거리 1000의 3.58배
	ex.lastPrice = 97600
	notifier := &fakeNotifier{}

	l := NewOrderLifecycle(ex, notifier, nil, testLifecycleConfig())
	tc := newTestContext()

	_, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRiskMultiplierExceeded))

	assert.Equal(t, domain.Cancelled, tc.State)
	assert.Equal(t, 0, ex.editCount()) // 수정 시도조차 하지 않아야 합니다
	assert.Equal(t, 1, ex.cancelCount())
	assert.Equal(t, 1, notifier.warningCount())
}

func TestOrderLifecycle_EditLimitRequiresManual(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95010 // 배율 가드에 걸리지 않는 소폭 재가격

	cfg := testLifecycleConfig()
	cfg.MaxEditAttempts = 3

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, cfg)
	tc := newTestContext()

	_, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManualManagementRequired))
	assert.Equal(t, domain.Cancelled, tc.State)
	assert.Equal(t, 3, tc.EditCount)
}

func TestOrderLifecycle_NotFoundRequeryFilled(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95100
	ex.editQueue = []domain.EditResult{{Outcome: domain.EditNotFound}}
	// 수정 중 미발견이지만 재조회하면 체결되어 있는 시나리오
	ex.fillAfterEdit = &domain.FillStatus{Filled: true, ActualEntry: 95088}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, 95088.0, pos.ActualEntry)
	assert.Equal(t, domain.Filled, tc.State)
}

func TestOrderLifecycle_NotFoundConcludesCancelled(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95100
	ex.editQueue = []domain.EditResult{{Outcome: domain.EditNotFound}}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()

	_, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderGone))
	assert.Equal(t, domain.Cancelled, tc.State)
}

func TestOrderLifecycle_FilledDuringEdit(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95100
	ex.editQueue = []domain.EditResult{{Outcome: domain.EditFilled, ActualEntry: 95090}}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, 95090.0, pos.ActualEntry)
}

func TestOrderLifecycle_PartialFillWaitsForFull(t *testing.T) {
	ex := newFakeExchange()
	ex.fillQueue = []domain.FillStatus{
		{PartiallyFilled: true, ActualEntry: 95005},
		{Filled: true, ActualEntry: 95005},
	}

	l := NewOrderLifecycle(ex, &fakeNotifier{}, nil, testLifecycleConfig())
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, 95005.0, pos.ActualEntry)
	assert.Equal(t, domain.Filled, tc.State)
	assert.Equal(t, 0, ex.editCount()) // 부분 체결 중에는 수정하지 않습니다
}

// fixedDecider는 항상 같은 결정을 반환하는 RetryDecider입니다
type fixedDecider struct {
	retry bool
}

func (d fixedDecider) ShouldRetry(ctx context.Context, tc *domain.TradeContext) (bool, error) {
	return d.retry, nil
}

func TestOrderLifecycle_ManualApproveReprices(t *testing.T) {
	ex := newFakeExchange()
	ex.lastPrice = 95100
	ex.fillAfterEdit = &domain.FillStatus{Filled: true, ActualEntry: 95088}

	cfg := testLifecycleConfig()
	cfg.AutoRetryUnfilled = false

	l := NewOrderLifecycle(ex, &fakeNotifier{}, fixedDecider{retry: true}, cfg)
	tc := newTestContext()

	pos, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.NoError(t, err)

	// 수동 승인 시 자동 재시도와 같은 재가격 경로를 따릅니다
	assert.Equal(t, 1, ex.editCount())
	assert.Equal(t, 95088.0, pos.ActualEntry)
	assert.Equal(t, 0, ex.cancelCount())
}

func TestOrderLifecycle_ManualDeclineCancels(t *testing.T) {
	ex := newFakeExchange()

	cfg := testLifecycleConfig()
	cfg.AutoRetryUnfilled = false

	l := NewOrderLifecycle(ex, &fakeNotifier{}, fixedDecider{retry: false}, cfg)
	tc := newTestContext()

	_, err := l.AwaitFillOrRetry(context.Background(), tc)
	require.Error(t, err)
	assert.Equal(t, domain.Cancelled, tc.State)
	assert.Equal(t, 1, ex.cancelCount())
	assert.Equal(t, 0, ex.editCount())
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/exchange"
)

func testReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Tolerance:     0.10,
		MaxIterations: 2,
		ReadTimeout:   50 * time.Millisecond,
		PollInterval:  time.Millisecond,
	}
}

func newTestContext() *domain.TradeContext {
	return &domain.TradeContext{
		Intent: domain.TradeIntent{
			Direction:  domain.Long,
			Entry:      95000,
			StopLoss:   94000,
			RiskAmount: 1.00,
			Leverage:   25,
		},
		Quantity:      86,
		OriginalEntry: 95000,
		Order:         domain.OrderRef{OrderID: 1, Symbol: "BTCUSDT"},
	}
}

func TestPnLReconciler_DecreaseOnExcessLoss(t *testing.T) {
	ex := newFakeExchange()
	// 거래소 표시 손실 1.30 USDT > 목표 1.00 USDT (편차 +30%)
	ex.pnlQueue = []float64{1.30, 1.00}

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// floor(86 * (1.00/1.30) * 0.95) = 62
	assert.Equal(t, 62, tc.Quantity)
	require.Len(t, ex.editCalls, 1)
	assert.Equal(t, 62, ex.editCalls[0].Quantity)
	assert.Equal(t, 95000.0, ex.editCalls[0].Entry)

	// 보정 수량으로 손절이 재제출되어야 합니다
	require.Len(t, ex.slCalls, 1)
	assert.Equal(t, 62, ex.slCalls[0].Quantity)
	assert.Equal(t, 94000.0, ex.slCalls[0].Price)
}

func TestPnLReconciler_IncreaseOnShortfall(t *testing.T) {
	ex := newFakeExchange()
	// 거래소 표시 손실 0.80 USDT < 목표 1.00 USDT (편차 -20%)
	ex.pnlQueue = []float64{0.80, 1.00}

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// ceil(86 * (1.00/0.80) * 1.02) = ceil(109.65) = 110
	assert.Equal(t, 110, tc.Quantity)
}

func TestPnLReconciler_WithinTolerance(t *testing.T) {
	ex := newFakeExchange()
	ex.pnlQueue = []float64{1.05} // 편차 +5% < 10%

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, 86, tc.Quantity)
	assert.Empty(t, ex.editCalls)
	assert.Empty(t, ex.slCalls)
}

func TestPnLReconciler_ReadTimeoutNonFatal(t *testing.T) {
	ex := newFakeExchange()
	ex.pnlErr = exchange.ErrPnLUnavailable

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// 자체 추정치로 진행: 수량 변경도 보정도 없어야 합니다
	assert.Equal(t, 86, tc.Quantity)
	assert.Empty(t, ex.editCalls)
}

func TestPnLReconciler_TransientReadErrorNonFatal(t *testing.T) {
	ex := newFakeExchange()
	// ErrPnLUnavailable이 아닌 일시적 전송 실패가 지속되는 경우에도
	// 주문은 이미 살아있으므로 실행을 중단해서는 안 됩니다
	ex.pnlErr = errors.New("connection reset by peer")

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// 타임아웃과 동일하게 자체 추정치로 최선 검증 처리됩니다
	assert.Equal(t, 86, tc.Quantity)
	assert.Empty(t, ex.editCalls)
}

func TestPnLReconciler_RetryCapProceedsWithWarning(t *testing.T) {
	ex := newFakeExchange()
	ex.pnlQueue = []float64{1.30} // 항상 30% 초과로 수렴하지 않음
	notifier := &fakeNotifier{}

	r := NewPnLReconciler(ex, notifier, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// 최대 2회까지만 보정하고 경고와 함께 진행합니다
	assert.Len(t, ex.editCalls, 2)
	assert.NotEmpty(t, tc.Warnings)
	assert.Equal(t, 1, notifier.warningCount())
}

func TestPnLReconciler_EditRejectedKeepsQuantity(t *testing.T) {
	ex := newFakeExchange()
	ex.pnlQueue = []float64{1.30}
	ex.editQueue = []domain.EditResult{{Outcome: domain.EditFilled, ActualEntry: 95000}}

	r := NewPnLReconciler(ex, &fakeNotifier{}, testReconcilerConfig())
	tc := newTestContext()

	err := r.VerifyAndAdjust(context.Background(), tc)
	require.NoError(t, err)

	// 수정이 받아들여지지 않았으므로 수량은 그대로, 경고만 남습니다
	assert.Equal(t, 86, tc.Quantity)
	assert.NotEmpty(t, tc.Warnings)
	assert.Empty(t, ex.slCalls)
}

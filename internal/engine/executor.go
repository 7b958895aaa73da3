package engine

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/exchange"
	"github.com/assist-by/apex/internal/metrics"
	"github.com/assist-by/apex/internal/notification"
	"github.com/assist-by/apex/internal/risk"
)

// ExecutorConfig는 트레이드 실행기의 설정입니다
type ExecutorConfig struct {
	Symbol          string  // 거래 심볼
	SafetyFactor    float64 // 수량 계산 안전 계수
	MaintMarginRate float64 // 유지증거금률
	SafetyBuffer    float64 // 안전 레버리지 버퍼
}

// TradeExecutor는 리스크 의도를 검증된 주문으로 바꾸고 체결까지 끌고 가는
// 최상위 조정자입니다. 동시에 하나의 트레이드만 허용합니다.
type TradeExecutor struct {
	exchange   exchange.Exchange
	notifier   notification.Notifier
	leverage   *LeverageManager
	reconciler *PnLReconciler
	lifecycle  *OrderLifecycle
	cfg        ExecutorConfig

	inFlight atomic.Bool // 진행 중 플래그: 동시 Execute 호출을 거부합니다
}

// NewTradeExecutor는 새로운 트레이드 실행기를 생성합니다
func NewTradeExecutor(
	ex exchange.Exchange,
	notifier notification.Notifier,
	leverage *LeverageManager,
	reconciler *PnLReconciler,
	lifecycle *OrderLifecycle,
	cfg ExecutorConfig,
) *TradeExecutor {
	return &TradeExecutor{
		exchange:   ex,
		notifier:   notifier,
		leverage:   leverage,
		reconciler: reconciler,
		lifecycle:  lifecycle,
		cfg:        cfg,
	}
}

// validateIntent는 거래소 호출 전에 의도의 유효성을 검사합니다
func (e *TradeExecutor) validateIntent(intent domain.TradeIntent) error {
	if intent.Entry <= 0 || intent.StopLoss <= 0 || intent.RiskAmount <= 0 {
		return ErrMissingInput
	}

	switch intent.Direction {
	case domain.Long:
		if intent.StopLoss >= intent.Entry {
			return fmt.Errorf("%w: 롱 포지션의 손절가는 진입가 아래여야 합니다", ErrInvalidStop)
		}
		if intent.TakeProfit != 0 && intent.TakeProfit <= intent.Entry {
			return fmt.Errorf("%w: 롱 포지션의 익절가는 진입가 위여야 합니다", ErrInvalidStop)
		}
	case domain.Short:
		if intent.StopLoss <= intent.Entry {
			return fmt.Errorf("%w: 숏 포지션의 손절가는 진입가 위여야 합니다", ErrInvalidStop)
		}
		if intent.TakeProfit != 0 && intent.TakeProfit >= intent.Entry {
			return fmt.Errorf("%w: 숏 포지션의 익절가는 진입가 아래여야 합니다", ErrInvalidStop)
		}
	default:
		return fmt.Errorf("%w: 방향이 지정되지 않았습니다", ErrMissingInput)
	}

	if intent.Leverage < risk.MinLeverage || intent.Leverage > risk.MaxLeverage {
		return fmt.Errorf("레버리지는 %d 이상 %d 이하이어야 합니다", risk.MinLeverage, risk.MaxLeverage)
	}

	return nil
}

// Execute는 하나의 트레이드 의도를 끝까지 실행합니다:
// 레버리지 안전성 확인 → 증거금 확인 → 수량 계산 → 주문/손절 제출 →
// PnL 검증 → 체결 대기/재시도 → 체결 후 실제 리스크/익절 재계산.
// 치명적 에러는 전체 실행을 중단하고 진행 중 플래그를 해제합니다.
func (e *TradeExecutor) Execute(ctx context.Context, intent domain.TradeIntent) (*domain.TradeContext, error) {
	// 동시 실행 거부: 한 번에 하나의 트레이드만 허용됩니다
	if !e.inFlight.CompareAndSwap(false, true) {
		metrics.Trades.WithLabelValues("rejected").Inc()
		return nil, ErrTradeInFlight
	}
	defer e.inFlight.Store(false)

	// 1. 거래소 호출 전 유효성 검사
	if err := e.validateIntent(intent); err != nil {
		metrics.Trades.WithLabelValues("aborted").Inc()
		return nil, NewTradeError(e.cfg.Symbol, "validate", err)
	}

	// 의도는 여기서 스냅샷되며 이후 티커 갱신에 다시 바인딩되지 않습니다
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	tc := &domain.TradeContext{
		Intent:        intent,
		OriginalEntry: intent.Entry,
		Order:         domain.OrderRef{Symbol: e.cfg.Symbol},
	}

	log.Printf("트레이드 실행 시작: %s %s, 진입 %.2f, 손절 %.2f, 리스크 %.4f USDT, 레버리지 %dx",
		e.cfg.Symbol, intent.Direction, intent.Entry, intent.StopLoss, intent.RiskAmount, intent.Leverage)

	result, err := e.execute(ctx, tc)
	if err != nil {
		metrics.Trades.WithLabelValues("aborted").Inc()
		if e.notifier != nil {
			if notifyErr := e.notifier.SendError(err); notifyErr != nil {
				log.Printf("에러 알림 전송 실패: %v", notifyErr)
			}
		}
		return tc, err
	}

	metrics.Trades.WithLabelValues("filled").Inc()
	return result, nil
}

// execute는 실제 실행 시퀀스입니다. Execute가 플래그/메트릭/알림을 감쌉니다.
func (e *TradeExecutor) execute(ctx context.Context, tc *domain.TradeContext) (*domain.TradeContext, error) {
	intent := &tc.Intent

	// 2. 레버리지 안전성 확인 (위험하면 강제 변경, 실패 시 중단)
	if err := e.leverage.EnsureSafeLeverage(ctx, tc); err != nil {
		return nil, err
	}

	// 3. 수량 계산
	quantity := risk.Quantity(intent.Entry, intent.StopLoss, intent.RiskAmount, e.cfg.SafetyFactor)
	if quantity <= 0 {
		return nil, NewTradeError(e.cfg.Symbol, "calculate_quantity", ErrMissingInput)
	}
	tc.Quantity = quantity
	log.Printf("수량 계산 완료: %d USDT (안전 계수 %.2f)", quantity, e.cfg.SafetyFactor)

	// 4. 증거금 확인 (부족 시 조건부 레버리지 상향, 불가하면 중단)
	if err := e.leverage.EnsureFunded(ctx, tc); err != nil {
		return nil, err
	}

	// 5. 진입 주문 제출
	ref, err := e.exchange.SubmitOrder(ctx, intent.Direction, intent.Entry, tc.Quantity)
	if err != nil {
		return nil, NewTradeError(e.cfg.Symbol, "submit_order", err)
	}
	tc.Order = ref
	log.Printf("진입 주문 제출 완료 (주문 ID: %d)", ref.OrderID)

	// 6. 손절 주문 제출
	if err := e.exchange.SetStopLoss(ctx, ref, intent.StopLoss, tc.Quantity); err != nil {
		// 손절 없이 열린 주문을 남길 수 없으므로 취소 후 중단합니다
		if cancelErr := e.exchange.CancelPendingOrder(ctx, ref); cancelErr != nil {
			log.Printf("손절 실패 후 주문 취소도 실패했습니다 (주문 ID: %d): %v", ref.OrderID, cancelErr)
		}
		return nil, NewTradeError(e.cfg.Symbol, "set_stop_loss", err)
	}

	// 7. PnL 검증 및 수량 보정 (비치명적 경고 허용)
	if err := e.reconciler.VerifyAndAdjust(ctx, tc); err != nil {
		return nil, err
	}

	// 8. 체결 대기 및 제한된 재시도
	pos, err := e.lifecycle.AwaitFillOrRetry(ctx, tc)
	if err != nil {
		return nil, err
	}

	// 9. 익절 주문 배치 (설정된 경우)
	if pos.AdjustedTP != 0 {
		if err := e.exchange.SetTakeProfit(ctx, intent.Direction, pos.AdjustedTP); err != nil {
			// 진입은 성공했으므로 에러는 기록만 하고 계속 진행
			msg := fmt.Sprintf("익절 주문 배치 실패: %v", err)
			tc.Warn(msg)
			log.Printf("%s", msg)
		}
	}

	// 10. 거래 실행 알림
	if e.notifier != nil {
		liq := risk.Liquidation(pos.ActualEntry, intent.Leverage, intent.Direction, e.cfg.MaintMarginRate)
		info := notification.TradeInfo{
			Symbol:       e.cfg.Symbol,
			Direction:    intent.Direction.String(),
			Quantity:     tc.Quantity,
			PlannedEntry: tc.OriginalEntry,
			ActualEntry:  pos.ActualEntry,
			StopLoss:     intent.StopLoss,
			TakeProfit:   pos.AdjustedTP,
			RiskAmount:   intent.RiskAmount,
			ActualRisk:   pos.ActualRisk,
			Leverage:     intent.Leverage,
			Liquidation:  liq,
			EditCount:    tc.EditCount,
		}
		if err := e.notifier.SendTradeInfo(info); err != nil {
			log.Printf("거래 정보 알림 전송 실패: %v", err)
		}
	}

	return tc, nil
}

// InFlight는 현재 진행 중인 트레이드가 있는지 반환합니다
func (e *TradeExecutor) InFlight() bool {
	return e.inFlight.Load()
}

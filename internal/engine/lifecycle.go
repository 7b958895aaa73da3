package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/exchange"
	"github.com/assist-by/apex/internal/metrics"
	"github.com/assist-by/apex/internal/notification"
	"github.com/assist-by/apex/internal/poll"
	"github.com/assist-by/apex/internal/risk"
)

// LifecycleConfig는 주문 생명주기 상태 기계의 설정입니다
type LifecycleConfig struct {
	AutoRetryUnfilled bool          // 미체결 시 자동 재가격 여부
	UnfilledWaitTime  time.Duration // 체결 대기 시간 (기본 30초)
	PollInterval      time.Duration // 체결 확인 폴링 간격
	MaxEditAttempts   int           // 최대 재가격 수정 횟수 (기본 10)
	EntryOffset       float64       // 재가격 시 현재가 대비 오프셋 (기본 $12)
	MaxRiskMultiplier float64       // 리스크 배율 상한 (기본 2.0배)
}

// RetryDecider는 자동 재시도가 꺼져 있을 때 재시도 여부를 결정하는
// 외부 협력자입니다 (수동 확인 등).
type RetryDecider interface {
	ShouldRetry(ctx context.Context, tc *domain.TradeContext) (bool, error)
}

// OrderLifecycle은 제출된 주문을 체결까지 끌고 가는 상태 기계입니다.
//
// 상태 전이:
//
//	Submitted → {Filled, Unfilled}
//	Unfilled  → {Editing, Filled, Cancelled}  (루프)
//	Editing   → {Unfilled, Filled, PartiallyFilled}
//	PartiallyFilled → Filled  (대기만)
//
// 종결 상태는 Filled와 Cancelled입니다.
type OrderLifecycle struct {
	exchange exchange.Exchange
	notifier notification.Notifier
	decider  RetryDecider
	cfg      LifecycleConfig
}

// NewOrderLifecycle은 새로운 주문 생명주기 상태 기계를 생성합니다
func NewOrderLifecycle(ex exchange.Exchange, notifier notification.Notifier, decider RetryDecider, cfg LifecycleConfig) *OrderLifecycle {
	return &OrderLifecycle{
		exchange: ex,
		notifier: notifier,
		decider:  decider,
		cfg:      cfg,
	}
}

// transition은 상태를 전이하고 감사 로그를 남깁니다
func (l *OrderLifecycle) transition(tc *domain.TradeContext, to domain.OrderState) {
	log.Printf("주문 상태 전이: %s → %s (주문 ID: %d, 수정 %d회)",
		tc.State, to, tc.Order.OrderID, tc.EditCount)
	tc.State = to
	metrics.StateTransitions.WithLabelValues(to.String()).Inc()
}

// waitForFill은 체결 대기 시간 동안 체결 상태를 폴링합니다.
// 타임아웃은 에러가 아니라 "미체결" 관찰 결과입니다.
func (l *OrderLifecycle) waitForFill(ctx context.Context, tc *domain.TradeContext, window time.Duration) (domain.FillStatus, bool, error) {
	status, err := poll.Until(ctx, l.cfg.PollInterval, window,
		func(ctx context.Context) (domain.FillStatus, bool, error) {
			st, err := l.exchange.CheckFilled(ctx, tc.Order)
			if err != nil {
				if errors.Is(err, exchange.ErrOrderNotFound) {
					// 일시적 미발견은 계속 관찰합니다: 비동기적 외부 상태에서
					// "찾을 수 없음"이 곧 취소를 의미하지 않습니다
					return domain.FillStatus{}, false, nil
				}
				return domain.FillStatus{}, false, err
			}
			if st.Filled || st.PartiallyFilled {
				return st, true, nil
			}
			return domain.FillStatus{}, false, nil
		})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return domain.FillStatus{}, false, nil
		}
		return domain.FillStatus{}, false, err
	}
	return status, true, nil
}

// awaitFullFill은 부분 체결 상태에서 전량 체결을 대기합니다 (대기만, 수정 없음)
func (l *OrderLifecycle) awaitFullFill(ctx context.Context, tc *domain.TradeContext) (*domain.FilledPosition, error) {
	for attempt := 0; attempt < l.cfg.MaxEditAttempts; attempt++ {
		status, observed, err := l.waitForFill(ctx, tc, l.cfg.UnfilledWaitTime)
		if err != nil {
			return nil, NewTradeError(tc.Order.Symbol, "await_full_fill", err)
		}
		if observed && status.Filled {
			return l.onFilled(ctx, tc, status.ActualEntry)
		}
		log.Printf("부분 체결 잔량 대기 중... (시도 %d)", attempt+1)
	}

	l.transition(tc, domain.Cancelled)
	return nil, NewTradeError(tc.Order.Symbol, "await_full_fill", ErrManualManagementRequired)
}

// computeRetryEntry는 현재가 기준으로 체결 가능성을 높이는 방향의
// 새 진입가를 계산합니다. 주문은 시장가를 넘지 않는 쪽에 붙여 다음
// 터치에서 체결되도록 합니다.
func (l *OrderLifecycle) computeRetryEntry(direction domain.Direction, lastPrice float64) float64 {
	if direction == domain.Long {
		return lastPrice - l.cfg.EntryOffset
	}
	return lastPrice + l.cfg.EntryOffset
}

// riskMultiplier는 재가격이 원래 계획 대비 리스크를 몇 배로 만드는지 계산합니다
func riskMultiplier(newEntry, originalEntry, stop float64) float64 {
	originalDistance := math.Abs(originalEntry - stop)
	if originalDistance == 0 {
		return math.Inf(1)
	}
	return math.Abs(newEntry-stop) / originalDistance
}

// cancelAndVerify는 주문을 취소하고 거래소 상태를 재조회합니다.
// 취소는 조언적일 뿐이므로 취소 요청 후 실제 상태를 다시 확인해야 합니다.
func (l *OrderLifecycle) cancelAndVerify(ctx context.Context, tc *domain.TradeContext) {
	if err := l.exchange.CancelPendingOrder(ctx, tc.Order); err != nil {
		log.Printf("주문 취소 실패 (주문 ID: %d): %v", tc.Order.OrderID, err)
	}

	// 취소가 거래소에 실제로 반영되었는지 확인합니다. 그 사이 체결되었을 수도 있습니다.
	status, err := l.exchange.CheckFilled(ctx, tc.Order)
	if err == nil && (status.Filled || status.PartiallyFilled) {
		msg := fmt.Sprintf("취소 요청 중 주문이 체결되었습니다 (체결가: %.2f). 수동 확인이 필요합니다", status.ActualEntry)
		tc.Warn(msg)
		if l.notifier != nil {
			l.notifier.SendWarning("⚠️ " + msg)
		}
	}
}

// AwaitFillOrRetry는 제출된 주문을 체결까지 관리합니다. 미체결 시 제한된
// 재가격 수정을 시도하며, 리스크 증가는 상한으로 제한됩니다.
func (l *OrderLifecycle) AwaitFillOrRetry(ctx context.Context, tc *domain.TradeContext) (*domain.FilledPosition, error) {
	tc.State = domain.Submitted
	log.Printf("체결 대기 시작 (주문 ID: %d, 대기 시간: %v)", tc.Order.OrderID, l.cfg.UnfilledWaitTime)

	for {
		status, observed, err := l.waitForFill(ctx, tc, l.cfg.UnfilledWaitTime)
		if err != nil {
			return nil, NewTradeError(tc.Order.Symbol, "await_fill", err)
		}

		if observed {
			if status.Filled {
				return l.onFilled(ctx, tc, status.ActualEntry)
			}
			l.transition(tc, domain.PartiallyFilled)
			return l.awaitFullFill(ctx, tc)
		}

		// 대기 시간 내 미체결
		l.transition(tc, domain.Unfilled)

		if !l.cfg.AutoRetryUnfilled {
			retry := false
			if l.decider != nil {
				retry, err = l.decider.ShouldRetry(ctx, tc)
				if err != nil {
					return nil, NewTradeError(tc.Order.Symbol, "retry_decision", err)
				}
			}
			if !retry {
				l.transition(tc, domain.Cancelled)
				l.cancelAndVerify(ctx, tc)
				return nil, NewTradeError(tc.Order.Symbol, "await_fill",
					fmt.Errorf("미체결 주문이 취소되었습니다 (수동 결정)"))
			}
		}

		if tc.EditCount >= l.cfg.MaxEditAttempts {
			// 수정 한도 초과: 엔진 관점에서는 취소이지만 거래소에는 주문이
			// 살아있을 수 있습니다. 이 모호성은 해소하지 않고 표면화합니다.
			msg := fmt.Sprintf("재가격 %d회 한도 초과: 수동 관리가 필요합니다 (주문 ID: %d)",
				l.cfg.MaxEditAttempts, tc.Order.OrderID)
			tc.Warn(msg)
			if l.notifier != nil {
				l.notifier.SendWarning("🚨 " + msg)
			}
			l.transition(tc, domain.Cancelled)
			metrics.OrderEdits.WithLabelValues("exhausted").Inc()
			return nil, NewTradeError(tc.Order.Symbol, "edit_limit", ErrManualManagementRequired)
		}

		lastPrice, err := l.exchange.GetLastPrice(ctx)
		if err != nil {
			return nil, NewTradeError(tc.Order.Symbol, "get_last_price", err)
		}

		newEntry := l.computeRetryEntry(tc.Intent.Direction, lastPrice)

		// 리스크 증가 가드: 수정 전에 반드시 검사합니다. 자동 재시도가
		// 조용히 리스크를 배수로 키우는 일은 허용되지 않습니다.
		multiplier := riskMultiplier(newEntry, tc.OriginalEntry, tc.Intent.StopLoss)
		if multiplier > l.cfg.MaxRiskMultiplier {
			msg := fmt.Sprintf("재가격 거부: 리스크 배율 %.2f배가 상한 %.2f배를 초과합니다 (새 진입가: %.2f)",
				multiplier, l.cfg.MaxRiskMultiplier, newEntry)
			tc.Warn(msg)
			if l.notifier != nil {
				l.notifier.SendWarning("🚨 " + msg)
			}
			l.transition(tc, domain.Cancelled)
			l.cancelAndVerify(ctx, tc)
			metrics.OrderEdits.WithLabelValues("risk_refused").Inc()
			return nil, NewTradeError(tc.Order.Symbol, "risk_guard", ErrRiskMultiplierExceeded)
		}

		l.transition(tc, domain.Editing)
		log.Printf("미체결 주문 재가격: %.2f → %.2f (현재가: %.2f, 리스크 배율: %.2f배)",
			tc.Intent.Entry, newEntry, lastPrice, multiplier)

		editResult, err := l.exchange.EditPendingOrder(ctx, tc.Order, newEntry, 0)
		if err != nil && !errors.Is(err, exchange.ErrOrderNotFound) {
			return nil, NewTradeError(tc.Order.Symbol, "edit_order", err)
		}

		if errors.Is(err, exchange.ErrOrderNotFound) || editResult.Outcome == domain.EditNotFound {
			// 주문 미발견: 취소로 단정하기 전에 체결 상태를 재조회합니다
			status, err := l.exchange.CheckFilled(ctx, tc.Order)
			if err == nil && status.Filled {
				return l.onFilled(ctx, tc, status.ActualEntry)
			}
			log.Printf("수정 중 주문 미발견, 재조회 후에도 확인 불가 (주문 ID: %d)", tc.Order.OrderID)
			l.transition(tc, domain.Cancelled)
			metrics.OrderEdits.WithLabelValues("not_found").Inc()
			return nil, NewTradeError(tc.Order.Symbol, "edit_order", ErrOrderGone)
		}

		switch editResult.Outcome {
		case domain.EditFilled:
			return l.onFilled(ctx, tc, editResult.ActualEntry)

		case domain.EditPartiallyFilled:
			l.transition(tc, domain.PartiallyFilled)
			return l.awaitFullFill(ctx, tc)

		case domain.EditAccepted:
			tc.Intent.Entry = newEntry
			tc.EditCount++
			metrics.OrderEdits.WithLabelValues("accepted").Inc()
			l.transition(tc, domain.Unfilled)
			// 루프 계속: 새 가격에서 다시 체결을 대기합니다
		}
	}
}

// onFilled는 체결 확정을 처리합니다: 실제 체결가를 읽고 실제 리스크와
// 손익비를 보존하는 새 익절가를 재계산합니다.
func (l *OrderLifecycle) onFilled(ctx context.Context, tc *domain.TradeContext, actualEntry float64) (*domain.FilledPosition, error) {
	l.transition(tc, domain.Filled)

	if actualEntry <= 0 {
		// 체결가를 읽지 못한 경우 계획 진입가로 간주합니다
		actualEntry = tc.Intent.Entry
	}

	intent := tc.Intent
	pos := &domain.FilledPosition{
		ActualEntry: actualEntry,
		ActualRisk:  risk.ActualRisk(actualEntry, intent.StopLoss, tc.Quantity),
	}

	plannedRisk := risk.EstimatedLoss(intent.Entry, intent.StopLoss, tc.Quantity)

	// 체결가가 계획과 다르면 원래 손익비를 보존하는 익절가를 재계산합니다
	if intent.TakeProfit != 0 {
		pos.AdjustedTP = intent.TakeProfit
		if actualEntry != intent.Entry {
			rr := originalRewardRisk(tc)
			stopDistance := math.Abs(actualEntry - intent.StopLoss)
			if intent.Direction == domain.Long {
				pos.AdjustedTP = actualEntry + rr*stopDistance
			} else {
				pos.AdjustedTP = actualEntry - rr*stopDistance
			}
			log.Printf("슬리피지 반영: 체결가 %.2f (계획 %.2f), 익절가 %.2f → %.2f",
				actualEntry, intent.Entry, intent.TakeProfit, pos.AdjustedTP)
		}
	}

	// 계획 대비 리스크가 50% 이상 커졌으면 눈에 띄게 알립니다 (비치명적)
	if plannedRisk > 0 && pos.ActualRisk > plannedRisk*1.5 {
		msg := fmt.Sprintf("체결 후 실제 리스크 %.4f USDT가 계획 %.4f USDT의 150%%를 초과합니다",
			pos.ActualRisk, plannedRisk)
		tc.Warn(msg)
		if l.notifier != nil {
			l.notifier.SendWarning("🚨 " + msg)
		}
	}

	tc.Position = pos
	log.Printf("주문 체결 확정: 체결가 %.2f, 실제 리스크 %.4f USDT", pos.ActualEntry, pos.ActualRisk)
	return pos, nil
}

// originalRewardRisk는 최초 계획 기준의 손익비를 반환합니다
func originalRewardRisk(tc *domain.TradeContext) float64 {
	stopDistance := math.Abs(tc.OriginalEntry - tc.Intent.StopLoss)
	if stopDistance == 0 {
		return 0
	}
	return math.Abs(tc.Intent.TakeProfit-tc.OriginalEntry) / stopDistance
}

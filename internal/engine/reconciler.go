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

// ReconcilerConfig는 PnL 검증 루프의 설정입니다
type ReconcilerConfig struct {
	Tolerance     float64       // 허용 편차 비율 (기본 0.10 = 10%)
	MaxIterations int           // 최대 보정 재시도 횟수 (기본 2)
	ReadTimeout   time.Duration // 거래소 PnL 읽기 제한 시간
	PollInterval  time.Duration // PnL 읽기 폴링 간격
}

// PnLReconciler는 엔진의 목표 리스크와 거래소가 자체 계산한 예상 손실을
// 비교하고 수량 보정을 제안하는 반복 보정 루프입니다.
//
// 이것은 수렴이 보장된 솔버가 아니라 감쇠된 고정점 탐색입니다. 재시도
// 상한과 비대칭 안전 편향(항상 실현 리스크가 작아지는 쪽으로)은 의도된
// 설계입니다.
type PnLReconciler struct {
	exchange exchange.Exchange
	notifier notification.Notifier
	cfg      ReconcilerConfig
}

// NewPnLReconciler는 새로운 PnL 검증기를 생성합니다
func NewPnLReconciler(ex exchange.Exchange, notifier notification.Notifier, cfg ReconcilerConfig) *PnLReconciler {
	return &PnLReconciler{
		exchange: ex,
		notifier: notifier,
		cfg:      cfg,
	}
}

// readDisplayedPnL은 거래소의 예상 손실 표시를 제한 시간 내에 폴링합니다.
// 주문은 이미 살아있으므로 읽기 실패는 종류와 무관하게 폴링을 계속하고,
// 제한 시간까지 읽지 못하면 타임아웃으로 처리합니다 (호출자가 자체
// 추정치로 대체합니다).
func (r *PnLReconciler) readDisplayedPnL(ctx context.Context, ref domain.OrderRef) (float64, error) {
	return poll.Until(ctx, r.cfg.PollInterval, r.cfg.ReadTimeout,
		func(ctx context.Context) (float64, bool, error) {
			pnl, err := r.exchange.ReadDisplayedPnL(ctx, ref)
			if err != nil {
				if !errors.Is(err, exchange.ErrPnLUnavailable) {
					log.Printf("거래소 PnL 읽기 실패, 재시도합니다: %v", err)
				}
				return 0, false, nil
			}
			return pnl, true, nil
		})
}

// verifyOnce는 1회의 검증 시도를 수행하고 결과를 반환합니다
func (r *PnLReconciler) verifyOnce(ctx context.Context, tc *domain.TradeContext) (domain.VerificationResult, error) {
	target := tc.Intent.RiskAmount

	displayed, err := r.readDisplayedPnL(ctx, tc.Order)
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			// 신뢰할 수 없는 표시값에 무한정 묶일 수 없으므로
			// 엔진 자체 추정치로 최선 검증 처리합니다 (비치명적)
			estimate := risk.EstimatedLoss(tc.Intent.Entry, tc.Intent.StopLoss, tc.Quantity)
			log.Printf("거래소 PnL 읽기 시간 초과, 자체 추정치 %.4f USDT로 진행합니다", estimate)
			return domain.VerificationResult{
				Verified:        true,
				PnLAvailable:    false,
				FinalQuantity:   tc.Quantity,
				AdjustDirection: domain.AdjustNone,
			}, nil
		}
		return domain.VerificationResult{}, err
	}

	displayed = math.Abs(displayed)
	deviation := (displayed - target) / target

	result := domain.VerificationResult{
		ExchangePnL:   displayed,
		PnLAvailable:  true,
		FinalQuantity: tc.Quantity,
	}

	switch {
	case deviation > r.cfg.Tolerance:
		// 거래소 예상 손실이 목표 리스크를 초과: 수량 축소.
		// 정확한 보정에 5%를 더 줄여 언더리스킹 쪽으로 편향시킵니다.
		result.AdjustDirection = domain.AdjustDecrease
		result.FinalQuantity = int(math.Floor(float64(tc.Quantity) * (target / displayed) * 0.95))
	case deviation < -r.cfg.Tolerance:
		// 포지션이 너무 작음: 수량 증가 (소폭만)
		result.AdjustDirection = domain.AdjustIncrease
		result.FinalQuantity = int(math.Ceil(float64(tc.Quantity) * (target / displayed) * 1.02))
	default:
		result.Verified = true
		result.AdjustDirection = domain.AdjustNone
	}

	return result, nil
}

// VerifyAndAdjust는 거래소 표시 손실이 허용 오차 안에 들어올 때까지 수량을
// 보정합니다. 보정은 최대 MaxIterations회로 제한되며, 상한 도달 시 마지막
// 수량으로 진행하고 경고만 남깁니다 (비치명적).
func (r *PnLReconciler) VerifyAndAdjust(ctx context.Context, tc *domain.TradeContext) error {
	for attempt := 0; ; attempt++ {
		result, err := r.verifyOnce(ctx, tc)
		if err != nil {
			return NewTradeError(tc.Order.Symbol, "verify_pnl", err)
		}

		metrics.ReconcileIterations.Inc()

		if result.Verified {
			if result.PnLAvailable {
				log.Printf("PnL 검증 완료: 거래소 %.4f USDT, 목표 %.4f USDT, 수량 %d",
					result.ExchangePnL, tc.Intent.RiskAmount, tc.Quantity)
			}
			return nil
		}

		if attempt >= r.cfg.MaxIterations {
			msg := fmt.Sprintf("PnL 보정 %d회 후에도 허용 오차를 벗어납니다 (거래소: %.4f, 목표: %.4f). 마지막 수량 %d로 진행합니다",
				r.cfg.MaxIterations, result.ExchangePnL, tc.Intent.RiskAmount, tc.Quantity)
			tc.Warn(msg)
			if r.notifier != nil {
				r.notifier.SendWarning("⚠️ " + msg)
			}
			return nil
		}

		log.Printf("PnL 편차 감지 (거래소: %.4f, 목표: %.4f, 방향: %s). 수량 %d → %d",
			result.ExchangePnL, tc.Intent.RiskAmount, result.AdjustDirection,
			tc.Quantity, result.FinalQuantity)

		if result.FinalQuantity <= 0 {
			msg := "PnL 보정 결과 수량이 0이 되어 보정을 중단합니다"
			tc.Warn(msg)
			return nil
		}

		// 보정된 수량을 대기 주문에 반영합니다
		editResult, err := r.exchange.EditPendingOrder(ctx, tc.Order, tc.Intent.Entry, result.FinalQuantity)
		if err != nil || editResult.Outcome != domain.EditAccepted {
			// 수정 중 체결/소실 등은 생명주기 단계에서 처리되므로 보정만 중단합니다
			msg := fmt.Sprintf("수량 보정 반영 실패 (결과: %s): 수량 %d로 진행합니다",
				editResult.Outcome, tc.Quantity)
			if err != nil {
				msg = fmt.Sprintf("수량 보정 반영 실패: %v. 수량 %d로 진행합니다", err, tc.Quantity)
			}
			tc.Warn(msg)
			return nil
		}

		// 보정된 수량으로 손절 주문을 다시 제출하고 루프를 계속합니다
		tc.Quantity = result.FinalQuantity
		if err := r.exchange.SetStopLoss(ctx, tc.Order, tc.Intent.StopLoss, tc.Quantity); err != nil {
			msg := fmt.Sprintf("보정 수량으로 손절 재제출 실패: %v", err)
			tc.Warn(msg)
			if r.notifier != nil {
				r.notifier.SendWarning("⚠️ " + msg)
			}
			return nil
		}
	}
}

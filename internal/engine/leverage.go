package engine

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/exchange"
	"github.com/assist-by/apex/internal/metrics"
	"github.com/assist-by/apex/internal/notification"
	"github.com/assist-by/apex/internal/risk"
)

// LeverageConfig는 레버리지 안전성 판단을 위한 설정입니다
type LeverageConfig struct {
	MaintMarginRate    float64 // 유지증거금률
	SafetyBuffer       float64 // 안전 레버리지 계산 버퍼
	DangerDistance     float64 // 손절가-청산가 위험 거리 (이내면 강제 조정)
	WarningDistance    float64 // 손절가-청산가 경고 거리 (이내면 경고)
	AutoAdjustLeverage bool    // 증거금 부족 시 자동 레버리지 상향 허용 여부
}

// LeverageManager는 레버리지의 안전성과 증거금 충분성을 관리합니다
type LeverageManager struct {
	exchange exchange.Exchange
	notifier notification.Notifier
	cfg      LeverageConfig
}

// NewLeverageManager는 새로운 레버리지 매니저를 생성합니다
func NewLeverageManager(ex exchange.Exchange, notifier notification.Notifier, cfg LeverageConfig) *LeverageManager {
	return &LeverageManager{
		exchange: ex,
		notifier: notifier,
		cfg:      cfg,
	}
}

// liquidationDistance는 손절가에서 청산가까지의 거리를 반환합니다.
// 양수면 손절가가 청산가보다 먼저 닿는 정상 배치입니다.
func liquidationDistance(direction domain.Direction, stop, liquidation float64) float64 {
	if direction == domain.Long {
		return stop - liquidation
	}
	return liquidation - stop
}

// EnsureSafeLeverage는 현재 레버리지에서 청산이 손절보다 먼저 발생하는지
// 검사하고, 위험하다면 안전 레버리지로 강제 변경합니다. 변경이 확인되지
// 않으면 트레이드를 중단합니다 (위험한 레버리지로 진행하는 일은 없습니다).
func (m *LeverageManager) EnsureSafeLeverage(ctx context.Context, tc *domain.TradeContext) error {
	intent := &tc.Intent

	// 현재 거래소 레버리지 확인 (읽기 실패는 비치명적: 의도값으로 진행)
	current, err := m.exchange.GetCurrentLeverage(ctx)
	if err != nil {
		log.Printf("현재 레버리지 조회 실패, 설정값 %dx로 진행합니다: %v", intent.Leverage, err)
		current = 0
	}

	liq := risk.Liquidation(intent.Entry, intent.Leverage, intent.Direction, m.cfg.MaintMarginRate)
	validation := risk.Validate(intent.Direction, intent.StopLoss, liq)
	distance := liquidationDistance(intent.Direction, intent.StopLoss, liq)

	unsafe := !validation.Valid || distance < m.cfg.DangerDistance
	if unsafe {
		safeLev := risk.SafeLeverage(intent.Entry, intent.StopLoss, m.cfg.MaintMarginRate, m.cfg.SafetyBuffer)
		log.Printf("레버리지 %dx는 위험합니다 (청산가 %.2f, 거리 %.2f). %dx로 강제 변경합니다",
			intent.Leverage, liq, distance, safeLev)

		if err := m.exchange.SetLeverage(ctx, safeLev); err != nil {
			return NewTradeError(tc.Order.Symbol, "ensure_safe_leverage",
				fmt.Errorf("%w: %v", ErrLeverageAdjustFailed, err))
		}

		intent.Leverage = safeLev
		liq = risk.Liquidation(intent.Entry, intent.Leverage, intent.Direction, m.cfg.MaintMarginRate)
		distance = liquidationDistance(intent.Direction, intent.StopLoss, liq)

		if m.notifier != nil {
			m.notifier.SendWarning(fmt.Sprintf("⚠️ 위험한 레버리지를 감지하여 %dx로 조정했습니다 (새 청산가: %.2f)",
				safeLev, liq))
		}
	} else if current != 0 && current != intent.Leverage {
		// 거래소에 설정된 레버리지가 의도와 다르면 동기화합니다
		if err := m.exchange.SetLeverage(ctx, intent.Leverage); err != nil {
			return NewTradeError(tc.Order.Symbol, "sync_leverage",
				fmt.Errorf("%w: %v", ErrLeverageAdjustFailed, err))
		}
	}

	metrics.LiquidationDistance.Set(distance)

	// 경고 거리 이내면 비치명적으로 알립니다
	if distance < m.cfg.WarningDistance {
		msg := fmt.Sprintf("청산가(%.2f)가 손절가에 가깝습니다 (거리: %.2f)", liq, distance)
		tc.Warn(msg)
		if m.notifier != nil {
			m.notifier.SendWarning("⚠️ " + msg)
		}
	}

	return nil
}

// EnsureFunded는 주문 수량에 필요한 증거금이 확보되어 있는지 확인합니다.
// 부족하면 (자동 조정이 허용되고 청산 안전성이 유지되는 경우에 한해)
// 레버리지를 상향한 뒤 한 번만 재확인합니다. 그 외에는 트레이드를 중단합니다.
func (m *LeverageManager) EnsureFunded(ctx context.Context, tc *domain.TradeContext) error {
	intent := &tc.Intent

	available, err := m.exchange.GetAvailableBalance(ctx)
	if err != nil {
		return NewTradeError(tc.Order.Symbol, "get_balance", err)
	}

	required := float64(tc.Quantity) / float64(intent.Leverage)
	if available >= required {
		return nil
	}

	log.Printf("증거금 부족: 필요 %.2f USDT, 가용 %.2f USDT", required, available)

	if !m.cfg.AutoAdjustLeverage {
		return NewTradeError(tc.Order.Symbol, "ensure_funded",
			fmt.Errorf("%w: 필요 %.2f USDT, 가용 %.2f USDT (자동 레버리지 조정 비활성화)",
				ErrInsufficientBalance, required, available))
	}

	if available <= 0 {
		return NewTradeError(tc.Order.Symbol, "ensure_funded",
			fmt.Errorf("%w: 가용 잔고가 없습니다", ErrInsufficientBalance))
	}

	// 가용 잔고의 90%만 사용한다고 가정한 최소 레버리지
	minLeverage := int(math.Ceil(float64(tc.Quantity) / (available * 0.9)))
	if minLeverage < risk.MinLeverage {
		minLeverage = risk.MinLeverage
	}
	if minLeverage > risk.MaxLeverage {
		minLeverage = risk.MaxLeverage
	}

	// 상향된 레버리지에서도 청산 안전성이 유지되어야 합니다
	liq := risk.Liquidation(intent.Entry, minLeverage, intent.Direction, m.cfg.MaintMarginRate)
	validation := risk.Validate(intent.Direction, intent.StopLoss, liq)
	distance := liquidationDistance(intent.Direction, intent.StopLoss, liq)
	if !validation.Valid || distance < m.cfg.DangerDistance {
		return NewTradeError(tc.Order.Symbol, "ensure_funded",
			fmt.Errorf("%w: 레버리지 %dx로 상향해야 하지만 청산 안전성이 깨집니다 (청산가: %.2f)",
				ErrInsufficientBalance, minLeverage, liq))
	}

	if err := m.exchange.SetLeverage(ctx, minLeverage); err != nil {
		return NewTradeError(tc.Order.Symbol, "raise_leverage",
			fmt.Errorf("%w: %v", ErrLeverageAdjustFailed, err))
	}

	intent.Leverage = minLeverage
	if m.notifier != nil {
		m.notifier.SendWarning(fmt.Sprintf("⚠️ 증거금 확보를 위해 레버리지를 %dx로 상향했습니다", minLeverage))
	}

	// 상향 후 한 번만 재확인합니다
	required = float64(tc.Quantity) / float64(intent.Leverage)
	if available < required {
		return NewTradeError(tc.Order.Symbol, "ensure_funded",
			fmt.Errorf("%w: 레버리지 상향 후에도 부족합니다 (필요 %.2f, 가용 %.2f)",
				ErrInsufficientBalance, required, available))
	}

	return nil
}

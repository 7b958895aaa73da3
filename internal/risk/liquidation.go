package risk

import (
	"fmt"
	"math"

	"github.com/assist-by/apex/internal/domain"
)

// 레버리지 한계값 (바이낸스 선물 기준)
const (
	MinLeverage = 1
	MaxLeverage = 125
)

// DefaultMaintMarginRate는 기본 유지증거금률입니다 (0.5%)
const DefaultMaintMarginRate = 0.005

// DefaultSafetyBuffer는 안전 레버리지 계산 시 기본 여유 버퍼입니다 (0.5%)
const DefaultSafetyBuffer = 0.005

// Liquidation은 격리 마진 기준 추정 청산가를 계산합니다.
// 롱: entry * (1 - 1/leverage + mmr), 숏: entry * (1 + 1/leverage - mmr)
func Liquidation(entry float64, leverage int, direction domain.Direction, mmr float64) float64 {
	if entry <= 0 || leverage < MinLeverage {
		return 0
	}

	marginRatio := 1.0 / float64(leverage)
	if direction == domain.Long {
		return entry * (1 - marginRatio + mmr)
	}
	return entry * (1 + marginRatio - mmr)
}

// SafeLeverage는 손절가가 청산가보다 먼저 닿는 것이 보장되는 최대
// 레버리지를 계산합니다. 버퍼만큼의 여유를 두고 [1, 125] 범위로 제한합니다.
func SafeLeverage(entry, stop, mmr, buffer float64) int {
	if entry <= 0 || stop <= 0 {
		return MinLeverage
	}

	stopDistanceRatio := math.Abs(stop-entry) / entry
	denominator := stopDistanceRatio + mmr + buffer
	if denominator <= 0 {
		return MaxLeverage
	}

	leverage := int(math.Floor(1.0 / denominator))
	if leverage < MinLeverage {
		return MinLeverage
	}
	if leverage > MaxLeverage {
		return MaxLeverage
	}
	return leverage
}

// ValidationResult는 손절가-청산가 검증 결과를 표현합니다
type ValidationResult struct {
	Valid  bool   // 손절가가 청산가보다 먼저 닿는지 여부
	Reason string // 유효하지 않은 경우의 사유
}

// Validate는 손절가가 청산가보다 먼저 트리거되는지 검증합니다.
// 롱 포지션에서 손절가가 청산가 이하라면 청산이 먼저 발생하므로 유효하지 않습니다.
// 숏 포지션은 대칭입니다.
func Validate(direction domain.Direction, stop, liquidation float64) ValidationResult {
	if liquidation <= 0 {
		return ValidationResult{Valid: true}
	}

	switch direction {
	case domain.Long:
		if stop <= liquidation {
			return ValidationResult{
				Valid: false,
				Reason: fmt.Sprintf("손절가(%.2f)가 청산가(%.2f) 이하입니다: 손절 전에 청산이 발생합니다",
					stop, liquidation),
			}
		}
	case domain.Short:
		if stop >= liquidation {
			return ValidationResult{
				Valid: false,
				Reason: fmt.Sprintf("손절가(%.2f)가 청산가(%.2f) 이상입니다: 손절 전에 청산이 발생합니다",
					stop, liquidation),
			}
		}
	}

	return ValidationResult{Valid: true}
}

// Estimate는 주어진 의도에 대한 청산가와 안전 레버리지를 함께 계산합니다
func Estimate(intent domain.TradeIntent, mmr, buffer float64) domain.LiquidationEstimate {
	return domain.LiquidationEstimate{
		Price:        Liquidation(intent.Entry, intent.Leverage, intent.Direction, mmr),
		SafeLeverage: SafeLeverage(intent.Entry, intent.StopLoss, mmr, buffer),
	}
}

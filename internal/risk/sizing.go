package risk

import "math"

// DefaultSafetyFactor는 수량 계산 시 기본 안전 계수입니다.
// 수수료/슬리피지를 포함한 실현 손실이 설정 리스크를 넘지 않도록
// 의도적으로 언더슈팅합니다. 목표치가 아니라 상한 보호 장치입니다.
const DefaultSafetyFactor = 0.90

// Quantity는 (진입가, 손절가, 리스크 금액)을 주문 수량(명목 가치, USDT)으로
// 변환합니다: round(riskAmount * safetyFactor * entry / |stop - entry|)
// 진입가/손절가/리스크 중 하나라도 없으면 0을 반환합니다 (거래 불가로 처리).
func Quantity(entry, stop, riskAmount, safetyFactor float64) int {
	if entry <= 0 || stop <= 0 || riskAmount <= 0 {
		return 0
	}

	stopDistance := math.Abs(stop - entry)
	if stopDistance == 0 {
		return 0
	}

	if safetyFactor <= 0 {
		safetyFactor = DefaultSafetyFactor
	}

	return int(math.Round(riskAmount * safetyFactor * entry / stopDistance))
}

// ActualRisk는 실제 체결가 기준의 리스크 금액을 재계산합니다.
// quantity는 명목 가치(USDT)이며 quantity/actualFill이 코인 수량입니다.
func ActualRisk(actualFill, stop float64, quantity int) float64 {
	if actualFill <= 0 || quantity <= 0 {
		return 0
	}
	return math.Abs(actualFill-stop) * (float64(quantity) / actualFill)
}

// EstimatedLoss는 계획 기준의 예상 손실(엔진 자체 추정치)을 계산합니다
func EstimatedLoss(entry, stop float64, quantity int) float64 {
	if entry <= 0 || quantity <= 0 {
		return 0
	}
	return math.Abs(entry-stop) * (float64(quantity) / entry)
}

package domain

import "time"

// TradeIntent는 트레이더의 리스크 의도를 표현합니다.
// Execute 호출 시점에 스냅샷되며 제출 이후에는 진입가(체결 시 재확인)와
// 수량(확정 전 사이징/검증 단계)만 변경될 수 있습니다.
type TradeIntent struct {
	Direction  Direction // 롱/숏
	Entry      float64   // 진입가
	StopLoss   float64   // 손절가
	TakeProfit float64   // 익절가 (0이면 미설정)
	RiskAmount float64   // 허용 리스크 금액 (USDT)
	Leverage   int       // 사용할 레버리지
	CreatedAt  time.Time // 의도 생성 시간
}

// StopDistance는 진입가와 손절가 사이의 거리를 반환합니다
func (t TradeIntent) StopDistance() float64 {
	d := t.Entry - t.StopLoss
	if d < 0 {
		return -d
	}
	return d
}

// RewardRiskRatio는 설정된 익절가 기준 손익비를 반환합니다.
// 익절가가 없거나 손절 거리가 0이면 0을 반환합니다.
func (t TradeIntent) RewardRiskRatio() float64 {
	if t.TakeProfit == 0 {
		return 0
	}
	stopDist := t.StopDistance()
	if stopDist == 0 {
		return 0
	}
	tpDist := t.TakeProfit - t.Entry
	if tpDist < 0 {
		tpDist = -tpDist
	}
	return tpDist / stopDist
}

// LiquidationEstimate는 격리 마진 청산가 추정 결과를 표현합니다.
// 진입가/레버리지/방향이 바뀔 때마다 재계산되며 트레이드 간에 보존되지 않습니다.
type LiquidationEstimate struct {
	Price        float64 // 추정 청산가
	SafeLeverage int     // 손절가가 청산보다 먼저 닿는 최대 레버리지
}

// VerificationResult는 PnL 검증 1회 시도의 결과를 표현합니다
type VerificationResult struct {
	Verified        bool            // 허용 오차 내 여부
	ExchangePnL     float64         // 거래소가 표시한 예상 손실 (읽기 실패 시 0)
	PnLAvailable    bool            // 거래소 PnL 읽기 성공 여부
	FinalQuantity   int             // 검증 후 수량 (명목 가치, USDT)
	AdjustDirection AdjustDirection // 제안된 보정 방향
}

// FilledPosition은 체결 확정 시점의 실제 포지션 정보를 표현합니다.
// Filled 상태 전이에서만 생성되며 익절 주문 배치의 입력이 됩니다.
type FilledPosition struct {
	ActualEntry float64 // 실제 체결가
	ActualRisk  float64 // 실제 체결가 기준 재계산된 리스크 (USDT)
	AdjustedTP  float64 // 손익비를 보존하도록 재계산된 익절가 (0이면 미설정)
}

// TradeContext는 한 번의 Execute 호출 동안 살아있는 트레이드 상태입니다.
// 전역 상태 대신 명시적으로 소유권을 넘기며 각 컴포넌트를 통과합니다.
type TradeContext struct {
	Intent        TradeIntent     // Execute 시작 시점의 의도 스냅샷
	Quantity      int             // 주문 수량 (명목 가치, USDT)
	OriginalEntry float64         // 최초 계획 진입가 (리스크 배율 기준점)
	Order         OrderRef        // 제출된 주문 참조
	State         OrderState      // 현재 주문 상태
	EditCount     int             // 수행된 재가격 수정 횟수
	Position      *FilledPosition // 체결 시에만 설정
	Warnings      []string        // 비치명적 경고 (운영자에게 전달)
}

// Warn은 비치명적 경고를 기록합니다
func (tc *TradeContext) Warn(msg string) {
	tc.Warnings = append(tc.Warnings, msg)
}

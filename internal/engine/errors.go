package engine

import "fmt"

// 엔진에서 발생할 수 있는 에러들을 정의합니다.
// 치명적 에러는 Execute 전체를 중단시키고, 비치명적 조건은 경고로 기록됩니다.
var (
	// ErrMissingInput은 진입가/손절가/리스크가 누락되어 거래할 수 없음을 나타냅니다 (치명적, 거래소 호출 전)
	ErrMissingInput = fmt.Errorf("진입가, 손절가, 리스크 금액이 모두 필요합니다")

	// ErrTradeInFlight는 이미 진행 중인 트레이드가 있음을 나타냅니다
	ErrTradeInFlight = fmt.Errorf("이미 진행 중인 트레이드가 있습니다")

	// ErrLeverageAdjustFailed는 안전을 위해 필요한 레버리지 변경이 확인되지 않았음을 나타냅니다 (치명적)
	ErrLeverageAdjustFailed = fmt.Errorf("레버리지 변경을 확인하지 못했습니다")

	// ErrInsufficientBalance는 증거금 부족을 나타냅니다 (자동 레버리지 조정으로 복구 불가 시 치명적)
	ErrInsufficientBalance = fmt.Errorf("증거금이 부족합니다")

	// ErrRiskMultiplierExceeded는 재가격이 리스크 상한을 초과해 자동 재시도가 중단되었음을 나타냅니다
	ErrRiskMultiplierExceeded = fmt.Errorf("재가격 시 리스크 배율이 상한을 초과했습니다")

	// ErrManualManagementRequired는 자동 처리 한도를 넘어 수동 관리가 필요함을 나타냅니다.
	// 엔진 관점에서는 취소이지만 거래소에는 주문이 살아있을 수 있습니다.
	ErrManualManagementRequired = fmt.Errorf("자동 재시도 한도 초과: 수동 관리가 필요합니다")

	// ErrOrderGone은 재조회 후에도 주문을 찾지 못해 취소로 결론지었음을 나타냅니다
	ErrOrderGone = fmt.Errorf("주문이 거래소에서 사라졌습니다")

	// ErrInvalidStop은 방향 대비 손절가 위치가 잘못되었음을 나타냅니다
	ErrInvalidStop = fmt.Errorf("손절가 위치가 트레이드 방향과 맞지 않습니다")
)

// TradeError는 트레이드 실행 중 발생한 에러를 단계 정보와 함께 표현합니다
type TradeError struct {
	Symbol string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *TradeError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("트레이드 에러 [%s, 단계: %s]: %v", e.Symbol, e.Op, e.Err)
	}
	return fmt.Sprintf("트레이드 에러 [단계: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError는 새로운 TradeError를 생성합니다
func NewTradeError(symbol, op string, err error) *TradeError {
	return &TradeError{
		Symbol: symbol,
		Op:     op,
		Err:    err,
	}
}

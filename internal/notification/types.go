package notification

// 알림 색상 코드를 정의합니다
const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendWarning은 리스크 관련 경고 알림을 전송합니다
	SendWarning(message string) error

	// SendTradeInfo는 거래 실행 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 거래 실행 정보를 정의합니다
type TradeInfo struct {
	Symbol       string  // 심볼 (예: BTCUSDT)
	Direction    string  // "LONG" or "SHORT"
	Quantity     int     // 주문 수량 (명목 가치, USDT)
	PlannedEntry float64 // 계획 진입가
	ActualEntry  float64 // 실제 체결가
	StopLoss     float64 // 손절가
	TakeProfit   float64 // 익절가 (0이면 미설정)
	RiskAmount   float64 // 목표 리스크 (USDT)
	ActualRisk   float64 // 실제 체결가 기준 리스크 (USDT)
	Leverage     int     // 사용 레버리지
	Liquidation  float64 // 추정 청산가
	EditCount    int     // 재가격 수정 횟수
}

// GetColorForDirection은 트레이드 방향에 따른 색상을 반환합니다
func GetColorForDirection(direction string) int {
	switch direction {
	case "LONG":
		return ColorSuccess
	case "SHORT":
		return ColorError
	default:
		return ColorInfo
	}
}

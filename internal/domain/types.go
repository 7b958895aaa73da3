package domain

// Direction은 트레이드 방향을 정의합니다
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// String은 Direction의 문자열 표현을 반환합니다
func (d Direction) String() string {
	return string(d)
}

// OrderState는 주문 생명주기 상태를 정의합니다
type OrderState int

const (
	Submitted       OrderState = iota // 주문 제출됨, 체결 대기 중
	Filled                            // 체결 완료 (종결 상태)
	Unfilled                          // 대기 시간 내 미체결
	Editing                           // 재가격 수정 진행 중
	PartiallyFilled                   // 부분 체결, 잔량 체결 대기
	Cancelled                         // 취소됨 또는 수동 관리 필요 (종결 상태)
)

// String은 OrderState의 문자열 표현을 반환합니다
func (s OrderState) String() string {
	switch s {
	case Submitted:
		return "Submitted"
	case Filled:
		return "Filled"
	case Unfilled:
		return "Unfilled"
	case Editing:
		return "Editing"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal은 해당 상태가 종결 상태인지 반환합니다
func (s OrderState) IsTerminal() bool {
	return s == Filled || s == Cancelled
}

// AdjustDirection은 PnL 검증 후 수량 보정 방향을 정의합니다
type AdjustDirection int

const (
	AdjustNone     AdjustDirection = iota // 보정 불필요
	AdjustIncrease                        // 수량 증가 필요 (리스크 미달)
	AdjustDecrease                        // 수량 감소 필요 (리스크 초과)
)

// String은 AdjustDirection의 문자열 표현을 반환합니다
func (a AdjustDirection) String() string {
	switch a {
	case AdjustIncrease:
		return "Increase"
	case AdjustDecrease:
		return "Decrease"
	default:
		return "None"
	}
}

// OrderSide는 주문 방향을 정의합니다
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType은 주문 유형을 정의합니다
type OrderType string

const (
	Market           OrderType = "MARKET"
	Limit            OrderType = "LIMIT"
	StopMarket       OrderType = "STOP_MARKET"
	TakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// GetOrderSideForEntry는 포지션 진입을 위한 주문 사이드를 반환합니다
func GetOrderSideForEntry(direction Direction) OrderSide {
	if direction == Long {
		return Buy
	}
	return Sell
}

// GetOrderSideForExit는 포지션 청산을 위한 주문 사이드를 반환합니다
func GetOrderSideForExit(direction Direction) OrderSide {
	if direction == Long {
		return Sell
	}
	return Buy
}

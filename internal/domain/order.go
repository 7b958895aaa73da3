package domain

import "time"

// OrderRef는 거래소에 제출된 주문의 참조 정보를 표현합니다
type OrderRef struct {
	OrderID       int64     // 거래소 주문 ID
	ClientOrderID string    // 클라이언트 측 주문 ID
	Symbol        string    // 심볼 (예: BTCUSDT)
	SubmittedAt   time.Time // 제출 시간
}

// IsZero는 주문 참조가 비어있는지 반환합니다
func (r OrderRef) IsZero() bool {
	return r.OrderID == 0 && r.ClientOrderID == ""
}

// FillStatus는 주문 체결 상태 조회 결과를 표현합니다
type FillStatus struct {
	Filled          bool    // 전량 체결 여부
	PartiallyFilled bool    // 부분 체결 여부
	ActualEntry     float64 // 평균 체결가 (체결된 경우만)
}

// EditOutcome은 대기 주문 수정 시도의 결과 유형을 정의합니다
type EditOutcome int

const (
	EditAccepted        EditOutcome = iota // 수정 반영됨, 계속 대기
	EditFilled                             // 수정 시도 중 전량 체결됨
	EditPartiallyFilled                    // 수정 시도 중 부분 체결됨
	EditNotFound                           // 거래소에서 주문을 찾지 못함
)

// String은 EditOutcome의 문자열 표현을 반환합니다
func (e EditOutcome) String() string {
	switch e {
	case EditAccepted:
		return "Accepted"
	case EditFilled:
		return "Filled"
	case EditPartiallyFilled:
		return "PartiallyFilled"
	case EditNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// EditResult는 대기 주문 수정 시도의 결과를 표현합니다
type EditResult struct {
	Outcome     EditOutcome // 수정 결과 유형
	ActualEntry float64     // 수정 중 체결된 경우의 평균 체결가
}

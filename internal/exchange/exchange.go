// internal/exchange/exchange.go
package exchange

import (
	"context"
	"errors"

	"github.com/assist-by/apex/internal/domain"
)

// ErrPnLUnavailable은 거래소의 예상 손실 표시를 읽을 수 없음을 나타냅니다.
// 호출자는 자체 추정치로 대체할 수 있습니다 (비치명적).
var ErrPnLUnavailable = errors.New("거래소 예상 손익을 읽을 수 없습니다")

// ErrOrderNotFound는 거래소에서 주문을 찾지 못했음을 나타냅니다.
// 외부 상태의 비동기성 때문에 취소로 단정하기 전에 체결 상태를
// 재조회해야 합니다.
var ErrOrderNotFound = errors.New("거래소에서 주문을 찾을 수 없습니다")

// Exchange는 거래소 자동화 계층과의 상호작용을 위한 인터페이스입니다.
// 엔진은 이 인터페이스를 통해서만 거래소 상태를 관찰하고 조작합니다.
type Exchange interface {
	// 시장 데이터 조회
	GetLastPrice(ctx context.Context) (float64, error)
	GetBidAsk(ctx context.Context) (bid, ask float64, err error)

	// 계정 데이터 조회
	GetAvailableBalance(ctx context.Context) (float64, error)
	GetCurrentLeverage(ctx context.Context) (int, error)

	// 설정 기능: 변경이 확인되지 않으면 에러를 반환합니다
	SetLeverage(ctx context.Context, leverage int) error

	// 거래 기능: quantity는 명목 가치(USDT)입니다
	SubmitOrder(ctx context.Context, direction domain.Direction, entry float64, quantity int) (domain.OrderRef, error)
	SetStopLoss(ctx context.Context, ref domain.OrderRef, price float64, quantity int) error
	SetTakeProfit(ctx context.Context, direction domain.Direction, price float64) error

	// ReadDisplayedPnL은 거래소 자체 모델이 계산한 예상 손실(양수)을 반환합니다.
	// 읽을 수 없으면 ErrPnLUnavailable을 반환할 수 있습니다.
	ReadDisplayedPnL(ctx context.Context, ref domain.OrderRef) (float64, error)

	// 주문 상태 관리
	CheckFilled(ctx context.Context, ref domain.OrderRef) (domain.FillStatus, error)
	EditPendingOrder(ctx context.Context, ref domain.OrderRef, newEntry float64, newQuantity int) (domain.EditResult, error)
	CancelPendingOrder(ctx context.Context, ref domain.OrderRef) error
}

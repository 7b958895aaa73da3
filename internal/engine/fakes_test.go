package engine

import (
	"context"
	"sync"
	"time"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/notification"
)

// slCall은 손절 주문 호출 기록입니다
type slCall struct {
	Price    float64
	Quantity int
}

// editCall은 주문 수정 호출 기록입니다
type editCall struct {
	Entry    float64
	Quantity int
}

// fakeExchange는 시나리오를 스크립트할 수 있는 거래소 구현입니다.
// 큐 필드는 호출마다 앞에서 하나씩 소비되며, 비면 마지막 값이 유지됩니다.
type fakeExchange struct {
	mu sync.Mutex

	lastPrice float64
	bid, ask  float64
	balance   float64
	leverage  int

	setLeverageErr error
	leverageCalls  []int

	pnlQueue []float64 // ReadDisplayedPnL 응답 큐
	pnlErr   error     // 설정 시 항상 이 에러를 반환

	submitCalls int
	slCalls     []slCall

	fillQueue     []domain.FillStatus // CheckFilled 응답 큐
	fillAfterEdit *domain.FillStatus  // 설정 시 수정 호출 이후의 CheckFilled 응답

	editQueue   []domain.EditResult // EditPendingOrder 응답 큐 (비면 EditAccepted)
	editCalls   []editCall
	cancelCalls int

	getCurrentLeverageFn func(ctx context.Context) (int, error)
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		lastPrice: 95000,
		bid:       94999.5,
		ask:       95000.5,
		balance:   10000,
		leverage:  25,
	}
}

func (f *fakeExchange) GetLastPrice(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrice, nil
}

func (f *fakeExchange) GetBidAsk(ctx context.Context) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bid, f.ask, nil
}

func (f *fakeExchange) GetAvailableBalance(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeExchange) GetCurrentLeverage(ctx context.Context) (int, error) {
	if f.getCurrentLeverageFn != nil {
		return f.getCurrentLeverageFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leverage, nil
}

func (f *fakeExchange) SetLeverage(ctx context.Context, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leverageCalls = append(f.leverageCalls, leverage)
	if f.setLeverageErr != nil {
		return f.setLeverageErr
	}
	f.leverage = leverage
	return nil
}

func (f *fakeExchange) SubmitOrder(ctx context.Context, direction domain.Direction, entry float64, quantity int) (domain.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return domain.OrderRef{
		OrderID:     int64(f.submitCalls),
		Symbol:      "BTCUSDT",
		SubmittedAt: time.Now(),
	}, nil
}

func (f *fakeExchange) SetStopLoss(ctx context.Context, ref domain.OrderRef, price float64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slCalls = append(f.slCalls, slCall{Price: price, Quantity: quantity})
	return nil
}

func (f *fakeExchange) SetTakeProfit(ctx context.Context, direction domain.Direction, price float64) error {
	return nil
}

func (f *fakeExchange) ReadDisplayedPnL(ctx context.Context, ref domain.OrderRef) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pnlErr != nil {
		return 0, f.pnlErr
	}
	if len(f.pnlQueue) == 0 {
		return 0, nil
	}
	pnl := f.pnlQueue[0]
	if len(f.pnlQueue) > 1 {
		f.pnlQueue = f.pnlQueue[1:]
	}
	return pnl, nil
}

func (f *fakeExchange) CheckFilled(ctx context.Context, ref domain.OrderRef) (domain.FillStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillAfterEdit != nil && len(f.editCalls) > 0 {
		return *f.fillAfterEdit, nil
	}
	if len(f.fillQueue) == 0 {
		return domain.FillStatus{}, nil
	}
	status := f.fillQueue[0]
	if len(f.fillQueue) > 1 {
		f.fillQueue = f.fillQueue[1:]
	}
	return status, nil
}

func (f *fakeExchange) EditPendingOrder(ctx context.Context, ref domain.OrderRef, newEntry float64, newQuantity int) (domain.EditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls = append(f.editCalls, editCall{Entry: newEntry, Quantity: newQuantity})
	if len(f.editQueue) == 0 {
		return domain.EditResult{Outcome: domain.EditAccepted}, nil
	}
	result := f.editQueue[0]
	if len(f.editQueue) > 1 {
		f.editQueue = f.editQueue[1:]
	}
	return result, nil
}

func (f *fakeExchange) CancelPendingOrder(ctx context.Context, ref domain.OrderRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeExchange) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.editCalls)
}

func (f *fakeExchange) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelCalls
}

// fakeNotifier는 전송된 알림을 기록합니다
type fakeNotifier struct {
	mu       sync.Mutex
	errors   []error
	infos    []string
	warnings []string
	trades   []notification.TradeInfo
}

func (n *fakeNotifier) SendError(err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err)
	return nil
}

func (n *fakeNotifier) SendInfo(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
	return nil
}

func (n *fakeNotifier) SendWarning(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, message)
	return nil
}

func (n *fakeNotifier) SendTradeInfo(info notification.TradeInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trades = append(n.trades, info)
	return nil
}

func (n *fakeNotifier) warningCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.warnings)
}

// internal/exchange/binance/client.go
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/exchange"
)

// 바이낸스 API 에러 코드
const (
	errCodeOrderNotExist = -2013 // 주문이 존재하지 않음
)

// Client는 바이낸스 선물 API 기반의 거래소 자동화 계층을 구현합니다
type Client struct {
	apiKey           string
	secretKey        string
	symbol           string
	baseURL          string
	httpClient       *http.Client
	serverTimeOffset int64 // 서버 시간과의 차이를 저장

	mu         sync.RWMutex
	symbolInfo *symbolInfo // 거래 규칙 캐시 (심볼당 1회 조회)
	slOrderID  int64       // 현재 손절 주문 ID (재제출 시 선취소용)
}

// symbolInfo는 심볼의 거래 규칙을 담습니다
type symbolInfo struct {
	StepSize          float64
	TickSize          float64
	PricePrecision    int
	QuantityPrecision int
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL은 기본 URL을 설정합니다
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTestnet은 테스트넷 사용 여부를 설정합니다
func WithTestnet(useTestnet bool) ClientOption {
	return func(c *Client) {
		if useTestnet {
			c.baseURL = "https://testnet.binancefuture.com"
		} else {
			c.baseURL = "https://fapi.binance.com"
		}
	}
}

// NewClient는 새로운 바이낸스 선물 클라이언트를 생성합니다
func NewClient(apiKey, secretKey, symbol string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		symbol:     symbol,
		baseURL:    "https://fapi.binance.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	// 옵션 적용
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// 컴파일 타임에 인터페이스 구현을 확인합니다
var _ exchange.Exchange = (*Client)(nil)

// SyncTime은 바이낸스 서버와 시간을 동기화합니다
func (c *Client) SyncTime(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/time", nil, false)
	if err != nil {
		return fmt.Errorf("서버 시간 조회 실패: %w", err)
	}

	var result struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("서버 시간 파싱 실패: %w", err)
	}

	c.mu.Lock()
	c.serverTimeOffset = result.ServerTime - time.Now().UnixMilli()
	c.mu.Unlock()

	return nil
}

// doRequest는 HTTP 요청을 실행하고 결과를 반환합니다
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, needSign bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	// URL 생성
	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("URL 파싱 실패: %w", err)
	}

	// 타임스탬프 추가
	if needSign {
		timestamp := strconv.FormatInt(c.getServerTime(), 10)
		params.Set("timestamp", timestamp)
		params.Set("recvWindow", "5000")
	}

	// 파라미터 설정
	reqURL.RawQuery = params.Encode()

	// 서명 추가
	if needSign {
		signature := c.sign(params.Encode())
		reqURL.RawQuery = reqURL.RawQuery + "&signature=" + signature
	}

	// 요청 생성
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}

	// 헤더 설정
	req.Header.Set("Content-Type", "application/json")
	if needSign {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	// 요청 실행
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	// 응답 읽기
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	// 상태 코드 확인
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"msg"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return nil, fmt.Errorf("HTTP 에러(%d): %s", resp.StatusCode, string(body))
		}
		if apiErr.Code == errCodeOrderNotExist {
			return nil, exchange.ErrOrderNotFound
		}
		return nil, fmt.Errorf("API 에러(코드: %d): %s", apiErr.Code, apiErr.Message)
	}

	return body, nil
}

// sign은 요청에 대한 서명을 생성합니다
func (c *Client) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// getServerTime은 현재 서버 시간을 반환합니다
func (c *Client) getServerTime() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().UnixMilli() + c.serverTimeOffset
}

// getSymbolInfo는 심볼의 거래 규칙을 조회하고 캐시합니다
func (c *Client) getSymbolInfo(ctx context.Context) (*symbolInfo, error) {
	c.mu.RLock()
	cached := c.symbolInfo
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	params := url.Values{}
	params.Add("symbol", c.symbol)

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", params, false)
	if err != nil {
		return nil, fmt.Errorf("심볼 정보 조회 실패: %w", err)
	}

	var exchangeInfo struct {
		Symbols []struct {
			Symbol            string `json:"symbol"`
			PricePrecision    int    `json:"pricePrecision"`
			QuantityPrecision int    `json:"quantityPrecision"`
			Filters           []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize,omitempty"`
				TickSize   string `json:"tickSize,omitempty"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(resp, &exchangeInfo); err != nil {
		return nil, fmt.Errorf("심볼 정보 파싱 실패: %w", err)
	}
	if len(exchangeInfo.Symbols) == 0 {
		return nil, fmt.Errorf("심볼 정보를 찾을 수 없음: %s", c.symbol)
	}

	info := &symbolInfo{
		PricePrecision:    exchangeInfo.Symbols[0].PricePrecision,
		QuantityPrecision: exchangeInfo.Symbols[0].QuantityPrecision,
	}
	for _, filter := range exchangeInfo.Symbols[0].Filters {
		switch filter.FilterType {
		case "LOT_SIZE":
			info.StepSize, _ = strconv.ParseFloat(filter.StepSize, 64)
		case "PRICE_FILTER":
			info.TickSize, _ = strconv.ParseFloat(filter.TickSize, 64)
		}
	}

	c.mu.Lock()
	c.symbolInfo = info
	c.mu.Unlock()

	return info, nil
}

// GetLastPrice는 심볼의 최근 체결 가격을 조회합니다
func (c *Client) GetLastPrice(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Add("symbol", c.symbol)

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return 0, err
	}

	var result struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("가격 파싱 실패: %w", err)
	}

	return strconv.ParseFloat(result.Price, 64)
}

// GetBidAsk는 현재 최우선 호가를 조회합니다
func (c *Client) GetBidAsk(ctx context.Context) (float64, float64, error) {
	params := url.Values{}
	params.Add("symbol", c.symbol)

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/bookTicker", params, false)
	if err != nil {
		return 0, 0, err
	}

	var result struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, 0, fmt.Errorf("호가 파싱 실패: %w", err)
	}

	bid, err := strconv.ParseFloat(result.BidPrice, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("매수 호가 파싱 실패: %w", err)
	}
	ask, err := strconv.ParseFloat(result.AskPrice, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("매도 호가 파싱 실패: %w", err)
	}

	return bid, ask, nil
}

// GetAvailableBalance는 사용 가능한 USDT 잔고를 조회합니다
func (c *Client) GetAvailableBalance(ctx context.Context) (float64, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/balance", nil, true)
	if err != nil {
		return 0, err
	}

	var balances []struct {
		Asset            string `json:"asset"`
		AvailableBalance string `json:"availableBalance"`
	}
	if err := json.Unmarshal(resp, &balances); err != nil {
		return 0, fmt.Errorf("잔고 파싱 실패: %w", err)
	}

	for _, b := range balances {
		if b.Asset == "USDT" {
			return strconv.ParseFloat(b.AvailableBalance, 64)
		}
	}

	return 0, fmt.Errorf("USDT 잔고를 찾을 수 없습니다")
}

// GetCurrentLeverage는 심볼에 설정된 현재 레버리지를 조회합니다
func (c *Client) GetCurrentLeverage(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Add("symbol", c.symbol)

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, true)
	if err != nil {
		return 0, err
	}

	var positions []struct {
		Symbol   string `json:"symbol"`
		Leverage string `json:"leverage"`
	}
	if err := json.Unmarshal(resp, &positions); err != nil {
		return 0, fmt.Errorf("포지션 정보 파싱 실패: %w", err)
	}

	for _, p := range positions {
		if p.Symbol == c.symbol {
			leverage, err := strconv.Atoi(p.Leverage)
			if err != nil {
				return 0, fmt.Errorf("레버리지 파싱 실패: %w", err)
			}
			return leverage, nil
		}
	}

	return 0, fmt.Errorf("심볼 %s의 포지션 정보를 찾을 수 없습니다", c.symbol)
}

// SetLeverage는 심볼의 레버리지를 설정하고 응답으로 변경을 확인합니다
func (c *Client) SetLeverage(ctx context.Context, leverage int) error {
	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("leverage", strconv.Itoa(leverage))

	resp, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params, true)
	if err != nil {
		return fmt.Errorf("레버리지 설정 실패: %w", err)
	}

	// 응답의 레버리지가 요청값과 일치해야 변경이 확인된 것입니다
	var result struct {
		Leverage int `json:"leverage"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("레버리지 응답 파싱 실패: %w", err)
	}
	if result.Leverage != leverage {
		return fmt.Errorf("레버리지 변경 미확인: 요청 %dx, 응답 %dx", leverage, result.Leverage)
	}

	return nil
}

// toCoinQuantity는 명목 가치(USDT)를 코인 수량 문자열로 변환합니다
func (c *Client) toCoinQuantity(ctx context.Context, notional int, price float64) (string, error) {
	info, err := c.getSymbolInfo(ctx)
	if err != nil {
		return "", err
	}

	quantity := float64(notional) / price
	adjusted := domain.AdjustQuantity(quantity, info.StepSize, info.QuantityPrecision)
	if adjusted <= 0 {
		return "", fmt.Errorf("수량이 최소 단위보다 작습니다: %.8f (스텝: %.8f)", quantity, info.StepSize)
	}

	return strconv.FormatFloat(adjusted, 'f', info.QuantityPrecision, 64), nil
}

// formatPrice는 가격을 틱 사이즈에 맞춰 문자열로 변환합니다
func (c *Client) formatPrice(ctx context.Context, price float64) (string, error) {
	info, err := c.getSymbolInfo(ctx)
	if err != nil {
		return "", err
	}
	adjusted := domain.AdjustPrice(price, info.TickSize, info.PricePrecision)
	return strconv.FormatFloat(adjusted, 'f', info.PricePrecision, 64), nil
}

// SubmitOrder는 지정가 진입 주문을 제출합니다. quantity는 명목 가치(USDT)입니다.
func (c *Client) SubmitOrder(ctx context.Context, direction domain.Direction, entry float64, quantity int) (domain.OrderRef, error) {
	qtyStr, err := c.toCoinQuantity(ctx, quantity, entry)
	if err != nil {
		return domain.OrderRef{}, err
	}
	priceStr, err := c.formatPrice(ctx, entry)
	if err != nil {
		return domain.OrderRef{}, err
	}

	clientOrderID := "apex-" + uuid.NewString()

	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("side", string(domain.GetOrderSideForEntry(direction)))
	params.Add("type", string(domain.Limit))
	params.Add("timeInForce", "GTC")
	params.Add("quantity", qtyStr)
	params.Add("price", priceStr)
	params.Add("newClientOrderId", clientOrderID)

	resp, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return domain.OrderRef{}, fmt.Errorf("주문 제출 실패: %w", err)
	}

	var result struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return domain.OrderRef{}, fmt.Errorf("주문 응답 파싱 실패: %w", err)
	}

	return domain.OrderRef{
		OrderID:       result.OrderID,
		ClientOrderID: clientOrderID,
		Symbol:        c.symbol,
		SubmittedAt:   time.Now(),
	}, nil
}

// SetStopLoss는 손절 주문을 제출합니다. 기존 손절 주문이 있으면 먼저 취소합니다.
func (c *Client) SetStopLoss(ctx context.Context, ref domain.OrderRef, price float64, quantity int) error {
	c.mu.RLock()
	prevSL := c.slOrderID
	c.mu.RUnlock()

	if prevSL != 0 {
		if err := c.cancelOrderByID(ctx, prevSL); err != nil && !errors.Is(err, exchange.ErrOrderNotFound) {
			// 이미 사라진 주문이 아니면 기록만 하고 새 손절에 기대합니다
			log.Printf("기존 손절 주문 취소 실패 (ID: %d): %v", prevSL, err)
		}
	}

	// 진입 주문의 사이드로 손절 방향을 결정합니다
	entryOrder, err := c.queryOrder(ctx, ref)
	if err != nil {
		return fmt.Errorf("진입 주문 조회 실패: %w", err)
	}
	side := domain.Sell
	if entryOrder.Side == string(domain.Sell) {
		side = domain.Buy
	}

	qtyStr, err := c.toCoinQuantity(ctx, quantity, price)
	if err != nil {
		return err
	}
	priceStr, err := c.formatPrice(ctx, price)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("side", string(side))
	params.Add("type", string(domain.StopMarket))
	params.Add("stopPrice", priceStr)
	params.Add("quantity", qtyStr)
	params.Add("reduceOnly", "true")
	params.Add("newClientOrderId", "apex-sl-"+uuid.NewString())

	resp, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return fmt.Errorf("손절 주문 제출 실패: %w", err)
	}

	var result struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("손절 응답 파싱 실패: %w", err)
	}

	c.mu.Lock()
	c.slOrderID = result.OrderID
	c.mu.Unlock()

	return nil
}

// SetTakeProfit는 익절 주문을 제출합니다
func (c *Client) SetTakeProfit(ctx context.Context, direction domain.Direction, price float64) error {
	priceStr, err := c.formatPrice(ctx, price)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("side", string(domain.GetOrderSideForExit(direction)))
	params.Add("type", string(domain.TakeProfitMarket))
	params.Add("stopPrice", priceStr)
	params.Add("closePosition", "true")
	params.Add("newClientOrderId", "apex-tp-"+uuid.NewString())

	if _, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true); err != nil {
		return fmt.Errorf("익절 주문 제출 실패: %w", err)
	}

	return nil
}

// ReadDisplayedPnL은 거래소 관점의 예상 손실을 재구성합니다: 호가의 불리한
// 쪽에서 체결된다고 가정하고 거래소가 제공하는 수수료율로 양쪽 수수료를
// 더합니다. 엔진 자체 추정과 독립적인, 거래소 데이터 기반의 추정치입니다.
func (c *Client) ReadDisplayedPnL(ctx context.Context, ref domain.OrderRef) (float64, error) {
	order, err := c.queryOrder(ctx, ref)
	if err != nil {
		if errors.Is(err, exchange.ErrOrderNotFound) {
			return 0, exchange.ErrPnLUnavailable
		}
		return 0, err
	}

	coinQty, err := strconv.ParseFloat(order.OrigQty, 64)
	if err != nil || coinQty <= 0 {
		return 0, exchange.ErrPnLUnavailable
	}

	stopPrice, err := c.currentStopPrice(ctx)
	if err != nil {
		return 0, exchange.ErrPnLUnavailable
	}

	takerFee, err := c.commissionRate(ctx)
	if err != nil {
		// 수수료율을 읽지 못하면 보수적 기본값을 사용합니다
		takerFee = 0.0005
	}

	bid, ask, err := c.GetBidAsk(ctx)
	if err != nil {
		return 0, exchange.ErrPnLUnavailable
	}

	// 매수 주문은 매도 호가, 매도 주문은 매수 호가에서 체결된다고 가정합니다
	fillPrice := ask
	stopDistance := fillPrice - stopPrice
	if order.Side == string(domain.Sell) {
		fillPrice = bid
		stopDistance = stopPrice - fillPrice
	}
	if stopDistance < 0 {
		stopDistance = 0
	}

	loss := stopDistance*coinQty + (fillPrice+stopPrice)*coinQty*takerFee
	return loss, nil
}

// commissionRate는 심볼의 테이커 수수료율을 조회합니다
func (c *Client) commissionRate(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Add("symbol", c.symbol)

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/commissionRate", params, true)
	if err != nil {
		return 0, err
	}

	var result struct {
		TakerCommissionRate string `json:"takerCommissionRate"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("수수료율 파싱 실패: %w", err)
	}

	return strconv.ParseFloat(result.TakerCommissionRate, 64)
}

// currentStopPrice는 현재 등록된 손절 주문의 스탑 가격을 조회합니다
func (c *Client) currentStopPrice(ctx context.Context) (float64, error) {
	c.mu.RLock()
	slID := c.slOrderID
	c.mu.RUnlock()
	if slID == 0 {
		return 0, fmt.Errorf("등록된 손절 주문이 없습니다")
	}

	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("orderId", strconv.FormatInt(slID, 10))

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/order", params, true)
	if err != nil {
		return 0, err
	}

	var result struct {
		StopPrice string `json:"stopPrice"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("손절 주문 파싱 실패: %w", err)
	}

	return strconv.ParseFloat(result.StopPrice, 64)
}

// orderStatus는 주문 조회 응답을 담습니다
type orderStatus struct {
	Status      string `json:"status"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	AvgPrice    string `json:"avgPrice"`
	OrigQty     string `json:"origQty"`
	ExecutedQty string `json:"executedQty"`
}

// queryOrder는 주문 상태를 조회합니다
func (c *Client) queryOrder(ctx context.Context, ref domain.OrderRef) (*orderStatus, error) {
	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("orderId", strconv.FormatInt(ref.OrderID, 10))

	resp, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, err
	}

	var result orderStatus
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("주문 조회 파싱 실패: %w", err)
	}

	return &result, nil
}

// CheckFilled는 주문의 체결 상태를 조회합니다
func (c *Client) CheckFilled(ctx context.Context, ref domain.OrderRef) (domain.FillStatus, error) {
	order, err := c.queryOrder(ctx, ref)
	if err != nil {
		return domain.FillStatus{}, err
	}

	status := domain.FillStatus{}
	switch order.Status {
	case "FILLED":
		status.Filled = true
		status.ActualEntry, _ = strconv.ParseFloat(order.AvgPrice, 64)
	case "PARTIALLY_FILLED":
		status.PartiallyFilled = true
		status.ActualEntry, _ = strconv.ParseFloat(order.AvgPrice, 64)
	}

	return status, nil
}

// EditPendingOrder는 대기 주문의 가격(및 선택적으로 수량)을 수정합니다.
// newQuantity가 0이면 기존 수량을 유지합니다.
func (c *Client) EditPendingOrder(ctx context.Context, ref domain.OrderRef, newEntry float64, newQuantity int) (domain.EditResult, error) {
	// 수정 전 상태 확인: 이미 체결됐으면 수정할 수 없습니다
	order, err := c.queryOrder(ctx, ref)
	if err != nil {
		if errors.Is(err, exchange.ErrOrderNotFound) {
			return domain.EditResult{Outcome: domain.EditNotFound}, nil
		}
		return domain.EditResult{}, err
	}

	switch order.Status {
	case "FILLED":
		avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
		return domain.EditResult{Outcome: domain.EditFilled, ActualEntry: avgPrice}, nil
	case "PARTIALLY_FILLED":
		avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
		return domain.EditResult{Outcome: domain.EditPartiallyFilled, ActualEntry: avgPrice}, nil
	case "CANCELED", "EXPIRED":
		return domain.EditResult{Outcome: domain.EditNotFound}, nil
	}

	priceStr, err := c.formatPrice(ctx, newEntry)
	if err != nil {
		return domain.EditResult{}, err
	}

	qtyStr := order.OrigQty
	if newQuantity > 0 {
		qtyStr, err = c.toCoinQuantity(ctx, newQuantity, newEntry)
		if err != nil {
			return domain.EditResult{}, err
		}
	}

	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("orderId", strconv.FormatInt(ref.OrderID, 10))
	params.Add("side", order.Side)
	params.Add("quantity", qtyStr)
	params.Add("price", priceStr)

	resp, err := c.doRequest(ctx, http.MethodPut, "/fapi/v1/order", params, true)
	if err != nil {
		if errors.Is(err, exchange.ErrOrderNotFound) {
			return domain.EditResult{Outcome: domain.EditNotFound}, nil
		}
		return domain.EditResult{}, fmt.Errorf("주문 수정 실패: %w", err)
	}

	var result struct {
		Status   string `json:"status"`
		AvgPrice string `json:"avgPrice"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return domain.EditResult{}, fmt.Errorf("주문 수정 응답 파싱 실패: %w", err)
	}

	switch result.Status {
	case "FILLED":
		avgPrice, _ := strconv.ParseFloat(result.AvgPrice, 64)
		return domain.EditResult{Outcome: domain.EditFilled, ActualEntry: avgPrice}, nil
	case "PARTIALLY_FILLED":
		avgPrice, _ := strconv.ParseFloat(result.AvgPrice, 64)
		return domain.EditResult{Outcome: domain.EditPartiallyFilled, ActualEntry: avgPrice}, nil
	}

	return domain.EditResult{Outcome: domain.EditAccepted}, nil
}

// CancelPendingOrder는 대기 주문을 취소합니다. 취소는 조언적일 뿐이므로
// 호출자는 취소 후 거래소 상태를 재조회해야 합니다.
func (c *Client) CancelPendingOrder(ctx context.Context, ref domain.OrderRef) error {
	return c.cancelOrderByID(ctx, ref.OrderID)
}

// cancelOrderByID는 주문 ID로 주문을 취소합니다
func (c *Client) cancelOrderByID(ctx context.Context, orderID int64) error {
	params := url.Values{}
	params.Add("symbol", c.symbol)
	params.Add("orderId", strconv.FormatInt(orderID, 10))

	if _, err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/order", params, true); err != nil {
		return err
	}

	return nil
}

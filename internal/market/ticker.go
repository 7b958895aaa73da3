// internal/market/ticker.go
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assist-by/apex/internal/metrics"
)

// PriceReader는 REST 기반 가격 조회 폴백을 정의합니다
type PriceReader interface {
	GetLastPrice(ctx context.Context) (float64, error)
	GetBidAsk(ctx context.Context) (float64, float64, error)
}

// Snapshot은 특정 시점의 시장 가격을 담습니다
type Snapshot struct {
	LastPrice float64
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

// Ticker는 웹소켓 스트림으로 시장 가격을 추적합니다. 스트림이 끊기거나
// 데이터가 오래되면 REST 폴백으로 가격을 갱신합니다.
type Ticker struct {
	symbol   string
	wsURL    string
	fallback PriceReader

	pollInterval time.Duration
	staleAfter   time.Duration
	readTimeout  time.Duration

	mu   sync.RWMutex
	snap Snapshot
}

// TickerOption은 티커 생성 옵션을 정의합니다
type TickerOption func(*Ticker)

// WithPollInterval은 REST 폴백 주기를 설정합니다
func WithPollInterval(interval time.Duration) TickerOption {
	return func(t *Ticker) {
		t.pollInterval = interval
	}
}

// WithStreamURL은 웹소켓 기본 URL을 설정합니다 (테스트넷용)
func WithStreamURL(baseURL string) TickerOption {
	return func(t *Ticker) {
		t.wsURL = baseURL
	}
}

// NewTicker는 새로운 시장 가격 티커를 생성합니다
func NewTicker(symbol string, fallback PriceReader, opts ...TickerOption) *Ticker {
	t := &Ticker{
		symbol:       symbol,
		wsURL:        "wss://fstream.binance.com",
		fallback:     fallback,
		pollInterval: 500 * time.Millisecond,
		staleAfter:   3 * time.Second,
		readTimeout:  60 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start는 스트림 수신과 폴백 폴링 고루틴을 시작합니다.
// ctx가 취소되면 모두 종료됩니다.
func (t *Ticker) Start(ctx context.Context) {
	go t.streamLoop(ctx)
	go t.fallbackLoop(ctx)
}

// Snapshot은 최근 시장 가격을 반환합니다. 아직 수신된 가격이 없으면
// 두 번째 반환값이 false입니다.
func (t *Ticker) Snapshot() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap, !t.snap.UpdatedAt.IsZero()
}

// streamLoop는 웹소켓 연결을 유지하며 끊기면 재접속합니다
func (t *Ticker) streamLoop(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		if err := t.consumeStream(ctx); err != nil {
			log.Printf("시장 스트림 끊김 (%s): %v, %v 후 재접속", t.symbol, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// consumeStream은 한 번의 웹소켓 세션을 수행합니다
func (t *Ticker) consumeStream(ctx context.Context) error {
	sym := strings.ToLower(t.symbol)
	streamURL := fmt.Sprintf("%s/stream?streams=%s@bookTicker/%s@aggTrade", t.wsURL, sym, sym)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return fmt.Errorf("웹소켓 연결 실패: %w", err)
	}
	defer conn.Close()

	log.Printf("시장 스트림 연결됨: %s", t.symbol)

	// ctx 취소 시 ReadMessage를 깨우기 위해 연결을 닫습니다
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		t.handleMessage(message)
	}
}

// handleMessage는 결합 스트림 메시지를 파싱해 스냅샷을 갱신합니다
func (t *Ticker) handleMessage(message []byte) {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		return
	}

	switch {
	case strings.HasSuffix(envelope.Stream, "@bookTicker"):
		var book struct {
			BidPrice string `json:"b"`
			AskPrice string `json:"a"`
		}
		if err := json.Unmarshal(envelope.Data, &book); err != nil {
			return
		}
		bid, err1 := strconv.ParseFloat(book.BidPrice, 64)
		ask, err2 := strconv.ParseFloat(book.AskPrice, 64)
		if err1 != nil || err2 != nil {
			return
		}
		t.update(func(s *Snapshot) {
			s.Bid = bid
			s.Ask = ask
		})

	case strings.HasSuffix(envelope.Stream, "@aggTrade"):
		var trade struct {
			Price string `json:"p"`
		}
		if err := json.Unmarshal(envelope.Data, &trade); err != nil {
			return
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			return
		}
		t.update(func(s *Snapshot) {
			s.LastPrice = price
		})
	}
}

// fallbackLoop는 스트림 데이터가 오래되면 REST로 가격을 갱신합니다
func (t *Ticker) fallbackLoop(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t.mu.RLock()
		stale := time.Since(t.snap.UpdatedAt) > t.staleAfter
		t.mu.RUnlock()
		if !stale {
			continue
		}

		price, err := t.fallback.GetLastPrice(ctx)
		if err != nil {
			continue
		}
		bid, ask, err := t.fallback.GetBidAsk(ctx)
		if err != nil {
			// 호가 없이 최근가만이라도 갱신합니다
			bid, ask = 0, 0
		}

		t.update(func(s *Snapshot) {
			s.LastPrice = price
			if bid > 0 && ask > 0 {
				s.Bid = bid
				s.Ask = ask
			}
		})
	}
}

// update는 스냅샷을 잠금 하에 갱신하고 메트릭을 반영합니다
func (t *Ticker) update(apply func(*Snapshot)) {
	t.mu.Lock()
	apply(&t.snap)
	t.snap.UpdatedAt = time.Now()
	last := t.snap.LastPrice
	t.mu.Unlock()

	if last > 0 {
		metrics.LastPrice.Set(last)
	}
}

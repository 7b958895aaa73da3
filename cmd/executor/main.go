package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	osSignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assist-by/apex/internal/config"
	"github.com/assist-by/apex/internal/domain"
	"github.com/assist-by/apex/internal/engine"
	"github.com/assist-by/apex/internal/exchange/binance"
	"github.com/assist-by/apex/internal/market"
	"github.com/assist-by/apex/internal/notification/discord"
)

// consoleDecider는 자동 재시도가 꺼져 있을 때 표준 입력으로 재가격 여부를
// 확인하는 협력자입니다 (AUTO_RETRY_UNFILLED=false인 경우에만 사용됩니다)
type consoleDecider struct {
	reader *bufio.Reader
}

func newConsoleDecider() *consoleDecider {
	return &consoleDecider{reader: bufio.NewReader(os.Stdin)}
}

// ShouldRetry는 미체결 주문의 재가격 여부를 운영자에게 묻습니다
func (d *consoleDecider) ShouldRetry(ctx context.Context, tc *domain.TradeContext) (bool, error) {
	fmt.Printf("주문이 체결되지 않았습니다 (주문 ID: %d, 수정 %d회). 재가격을 시도할까요? [y/N]: ",
		tc.Order.OrderID, tc.EditCount)

	answer, err := d.reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("응답 읽기 실패: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func main() {
	// 명령줄 플래그 정의
	longFlag := flag.Bool("long", false, "롱 포지션 진입")
	shortFlag := flag.Bool("short", false, "숏 포지션 진입")
	entryFlag := flag.Float64("entry", 0, "진입가 (필수)")
	stopFlag := flag.Float64("stop", 0, "손절가 (필수)")
	tpFlag := flag.Float64("tp", 0, "익절가 (선택)")
	riskFlag := flag.Float64("risk", 0, "리스크 금액 USDT (기본: RISK_AMOUNT)")
	leverageFlag := flag.Int("leverage", 0, "레버리지 (기본: LEVERAGE)")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성 (Ctrl+C로 진행 중 작업을 중단할 수 있습니다)
	ctx, cancel := osSignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("트레이드 실행 엔진 시작...")

	if *longFlag == *shortFlag {
		log.Fatal("-long 또는 -short 중 하나를 지정해야 합니다")
	}
	direction := domain.Long
	if *shortFlag {
		direction = domain.Short
	}

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	riskAmount := cfg.Trading.RiskAmount
	if *riskFlag > 0 {
		riskAmount = *riskFlag
	}
	leverage := cfg.Trading.Leverage
	if *leverageFlag > 0 {
		leverage = *leverageFlag
	}

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 시작 알림 전송
	if err := discordClient.SendInfo(fmt.Sprintf("🚀 트레이드 실행 엔진이 시작되었습니다. (%s %s)",
		cfg.Trading.Symbol, direction)); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	if cfg.Binance.UseTestnet {
		discordClient.SendInfo("⚠️ 테스트넷 모드로 실행 중입니다. 실제 자산은 사용되지 않습니다.")
	}

	// 바이낸스 클라이언트 생성
	binanceClient := binance.NewClient(
		cfg.Binance.APIKey,
		cfg.Binance.SecretKey,
		cfg.Trading.Symbol,
		binance.WithTimeout(10*time.Second),
		binance.WithTestnet(cfg.Binance.UseTestnet),
	)

	// 바이낸스 서버와 시간 동기화
	if err := binanceClient.SyncTime(ctx); err != nil {
		log.Printf("바이낸스 서버 시간 동기화 실패: %v", err)
		if err := discordClient.SendError(fmt.Errorf("바이낸스 서버 시간 동기화 실패: %w", err)); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}

	// 시장 가격 티커 시작
	tickerOpts := []market.TickerOption{market.WithPollInterval(cfg.App.TickerInterval)}
	if cfg.Binance.UseTestnet {
		tickerOpts = append(tickerOpts, market.WithStreamURL("wss://stream.binancefuture.com"))
	}
	ticker := market.NewTicker(cfg.Trading.Symbol, binanceClient, tickerOpts...)
	ticker.Start(ctx)

	// 메트릭 서버 시작
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("메트릭 서버 시작: %s/metrics", cfg.App.MetricsAddr)
		if err := http.ListenAndServe(cfg.App.MetricsAddr, mux); err != nil {
			log.Printf("메트릭 서버 종료: %v", err)
		}
	}()

	// 실행기 조립
	notifier := discordClient
	leverageMgr := engine.NewLeverageManager(binanceClient, notifier, engine.LeverageConfig{
		MaintMarginRate:    cfg.Risk.MaintMarginRate,
		SafetyBuffer:       cfg.Risk.LiqSafetyBuffer,
		DangerDistance:     cfg.Risk.LiqDangerDistance,
		WarningDistance:    cfg.Risk.LiqWarningDistance,
		AutoAdjustLeverage: cfg.Risk.AutoAdjustLeverage,
	})
	reconciler := engine.NewPnLReconciler(binanceClient, notifier, engine.ReconcilerConfig{
		Tolerance:     cfg.PnL.Tolerance,
		MaxIterations: cfg.PnL.MaxIterations,
		ReadTimeout:   cfg.PnL.ReadTimeout,
		PollInterval:  cfg.Order.PollInterval,
	})
	lifecycle := engine.NewOrderLifecycle(binanceClient, notifier, newConsoleDecider(), engine.LifecycleConfig{
		AutoRetryUnfilled: cfg.Order.AutoRetryUnfilled,
		UnfilledWaitTime:  cfg.Order.UnfilledWaitTime,
		PollInterval:      cfg.Order.PollInterval,
		MaxEditAttempts:   cfg.Order.MaxEditAttempts,
		EntryOffset:       cfg.Order.EntryOffset,
		MaxRiskMultiplier: cfg.Risk.MaxRiskMultiplier,
	})
	executor := engine.NewTradeExecutor(binanceClient, notifier, leverageMgr, reconciler, lifecycle, engine.ExecutorConfig{
		Symbol:          cfg.Trading.Symbol,
		SafetyFactor:    cfg.Risk.SafetyFactor,
		MaintMarginRate: cfg.Risk.MaintMarginRate,
		SafetyBuffer:    cfg.Risk.LiqSafetyBuffer,
	})

	intent := domain.TradeIntent{
		Direction:  direction,
		Entry:      *entryFlag,
		StopLoss:   *stopFlag,
		TakeProfit: *tpFlag,
		RiskAmount: riskAmount,
		Leverage:   leverage,
		CreatedAt:  time.Now(),
	}

	tc, err := executor.Execute(ctx, intent)
	if tc != nil {
		for _, warning := range tc.Warnings {
			log.Printf("경고: %s", warning)
		}
	}
	if err != nil {
		log.Printf("트레이드 실행 실패: %v", err)

		// 수동 관리가 필요한 종료는 구분해서 알립니다
		if errors.Is(err, engine.ErrManualManagementRequired) {
			discordClient.SendWarning("🚨 자동 처리 한도를 초과했습니다. 거래소에서 주문 상태를 직접 확인하세요.")
			os.Exit(2)
		}
		os.Exit(1)
	}

	if tc.Position != nil {
		log.Printf("트레이드 완료: 체결가 %.2f, 실제 리스크 %.4f USDT, 수정 %d회",
			tc.Position.ActualEntry, tc.Position.ActualRisk, tc.EditCount)
	}
}

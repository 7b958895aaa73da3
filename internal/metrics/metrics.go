// Package metrics는 엔진 동작을 관찰하기 위한 Prometheus 메트릭을 정의합니다.
//
//   - apex_trades_total{result}          – 트레이드 실행 횟수 (filled|aborted|rejected)
//   - apex_order_edits_total{outcome}    – 재가격 수정 횟수 (accepted|risk_refused|not_found|exhausted)
//   - apex_order_state_transitions_total{state} – 주문 상태 전이 횟수
//   - apex_reconcile_iterations_total    – PnL 검증 반복 횟수
//   - apex_last_price                    – 티커가 관찰한 마지막 가격
//   - apex_liquidation_distance          – 손절가-청산가 거리
//
// init()에서 등록되며 cmd/executor가 /metrics로 노출합니다.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_trades_total",
			Help: "트레이드 실행 횟수 (결과별)",
		},
		[]string{"result"},
	)

	OrderEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_order_edits_total",
			Help: "미체결 주문 재가격 수정 횟수 (결과별)",
		},
		[]string{"outcome"},
	)

	StateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apex_order_state_transitions_total",
			Help: "주문 생명주기 상태 전이 횟수",
		},
		[]string{"state"},
	)

	ReconcileIterations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "apex_reconcile_iterations_total",
			Help: "PnL 검증 반복 횟수",
		},
	)

	LastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apex_last_price",
			Help: "티커가 관찰한 마지막 가격",
		},
	)

	LiquidationDistance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apex_liquidation_distance",
			Help: "손절가에서 추정 청산가까지의 거리",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Trades,
		OrderEdits,
		StateTransitions,
		ReconcileIterations,
		LastPrice,
		LiquidationDistance,
	)
}

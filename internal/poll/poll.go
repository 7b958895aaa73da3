// Package poll은 외부 상태를 주기적으로 관찰하는 폴링 대기 유틸리티를 제공합니다.
// 모든 대기는 블로킹 I/O가 아니라 명시적 타임아웃을 가진 폴링입니다.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout은 타임아웃까지 조건이 충족되지 않았음을 나타냅니다
var ErrTimeout = errors.New("폴링 타임아웃: 제한 시간 내에 조건이 충족되지 않았습니다")

// Predicate는 한 번의 관찰을 수행합니다.
// done이 true면 폴링을 종료하고 결과를 반환합니다.
// 에러를 반환하면 폴링이 즉시 중단됩니다.
type Predicate[T any] func(ctx context.Context) (result T, done bool, err error)

// Until은 predicate가 충족되거나 타임아웃될 때까지 interval 간격으로 폴링합니다.
// 첫 관찰은 즉시 수행하며, 타임아웃 시 ErrTimeout을 반환합니다.
// 폴링 사이에는 제어를 양보하므로 독립적인 고루틴(가격 티커 등)이 공유
// 읽기 전용 상태를 갱신할 수 있습니다.
func Until[T any](ctx context.Context, interval, timeout time.Duration, pred Predicate[T]) (T, error) {
	var zero T

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, done, err := pred(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return result, nil
		}

		if time.Now().After(deadline) {
			return zero, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

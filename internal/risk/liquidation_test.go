package risk

import (
	"math"
	"testing"

	"github.com/assist-by/apex/internal/domain"
)

func TestLiquidation(t *testing.T) {
	tests := []struct {
		name      string
		entry     float64
		leverage  int
		direction domain.Direction
		mmr       float64
		want      float64
	}{
		{
			name:      "롱 포지션 25배 레버리지",
			entry:     95000,
			leverage:  25,
			direction: domain.Long,
			mmr:       0.005,
			want:      91675, // 95000 * (1 - 0.04 + 0.005)
		},
		{
			name:      "숏 포지션 25배 레버리지",
			entry:     95000,
			leverage:  25,
			direction: domain.Short,
			mmr:       0.005,
			want:      98325, // 95000 * (1 + 0.04 - 0.005)
		},
		{
			name:      "롱 포지션 저레버리지",
			entry:     100000,
			leverage:  2,
			direction: domain.Long,
			mmr:       0.005,
			want:      50500, // 100000 * (1 - 0.5 + 0.005)
		},
		{
			name:      "잘못된 진입가",
			entry:     0,
			leverage:  25,
			direction: domain.Long,
			mmr:       0.005,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Liquidation(tt.entry, tt.leverage, tt.direction, tt.mmr)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Liquidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeLeverage(t *testing.T) {
	tests := []struct {
		name   string
		entry  float64
		stop   float64
		mmr    float64
		buffer float64
		want   int
	}{
		{
			name:   "1000달러 손절 거리",
			entry:  95000,
			stop:   94000,
			mmr:    0.005,
			buffer: 0.005,
			// floor(1 / (1000/95000 + 0.005 + 0.005)) = floor(48.72)
			want: 48,
		},
		{
			name:   "매우 좁은 손절 거리는 최대 레버리지로 제한",
			entry:  95000,
			stop:   94999,
			mmr:    0.001,
			buffer: 0.001,
			want:   125,
		},
		{
			name:   "매우 넓은 손절 거리는 최소 레버리지로 제한",
			entry:  100000,
			stop:   1000,
			mmr:    0.005,
			buffer: 0.005,
			want:   1,
		},
		{
			name:   "잘못된 입력",
			entry:  0,
			stop:   94000,
			mmr:    0.005,
			buffer: 0.005,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeLeverage(tt.entry, tt.stop, tt.mmr, tt.buffer)
			if got != tt.want {
				t.Errorf("SafeLeverage() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 반환된 레버리지에서 청산가가 손절가보다 버퍼만큼 바깥에 있는지 검증합니다
func TestSafeLeverageGuaranteesBuffer(t *testing.T) {
	cases := []struct {
		entry, stop float64
		direction   domain.Direction
	}{
		{95000, 94000, domain.Long},
		{95000, 96000, domain.Short},
		{60000, 58500, domain.Long},
		{60000, 61200, domain.Short},
		{3500, 3450, domain.Long},
	}

	mmr := 0.005
	buffer := 0.005

	for _, c := range cases {
		leverage := SafeLeverage(c.entry, c.stop, mmr, buffer)
		liq := Liquidation(c.entry, leverage, c.direction, mmr)

		// 청산가는 손절가에서 진입가 대비 버퍼 비율 이상 떨어져 있어야 합니다
		margin := c.entry * buffer
		if c.direction == domain.Long {
			if liq > c.stop-margin+1e-6 {
				t.Errorf("entry=%v stop=%v leverage=%d: 청산가 %v가 손절가-버퍼 %v보다 가깝습니다",
					c.entry, c.stop, leverage, liq, c.stop-margin)
			}
		} else {
			if liq < c.stop+margin-1e-6 {
				t.Errorf("entry=%v stop=%v leverage=%d: 청산가 %v가 손절가+버퍼 %v보다 가깝습니다",
					c.entry, c.stop, leverage, liq, c.stop+margin)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		direction   domain.Direction
		stop        float64
		liquidation float64
		wantValid   bool
	}{
		{
			name:        "롱: 손절가가 청산가 위 (정상)",
			direction:   domain.Long,
			stop:        94000,
			liquidation: 91675,
			wantValid:   true,
		},
		{
			name:        "롱: 손절가가 청산가 아래 (청산 선행)",
			direction:   domain.Long,
			stop:        91000,
			liquidation: 91675,
			wantValid:   false,
		},
		{
			name:        "롱: 손절가와 청산가 동일 (청산 선행으로 간주)",
			direction:   domain.Long,
			stop:        91675,
			liquidation: 91675,
			wantValid:   false,
		},
		{
			name:        "숏: 손절가가 청산가 아래 (정상)",
			direction:   domain.Short,
			stop:        96000,
			liquidation: 98325,
			wantValid:   true,
		},
		{
			name:        "숏: 손절가가 청산가 위 (청산 선행)",
			direction:   domain.Short,
			stop:        99000,
			liquidation: 98325,
			wantValid:   false,
		},
		{
			name:        "청산가 미계산 시 통과",
			direction:   domain.Long,
			stop:        94000,
			liquidation: 0,
			wantValid:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.direction, tt.stop, tt.liquidation)
			if got.Valid != tt.wantValid {
				t.Errorf("Validate() valid = %v, want %v (reason: %s)", got.Valid, tt.wantValid, got.Reason)
			}
			if !got.Valid && got.Reason == "" {
				t.Error("Validate() 유효하지 않은 경우 사유가 있어야 합니다")
			}
		})
	}
}

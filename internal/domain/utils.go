package domain

import "math"

// AdjustPrice는 가격을 틱 사이즈 단위로 내림 조정합니다
func AdjustPrice(price, tickSize float64, precision int) float64 {
	if tickSize <= 0 {
		return price
	}
	adjusted := math.Floor(price/tickSize) * tickSize
	scale := math.Pow(10, float64(precision))
	return math.Floor(adjusted*scale) / scale
}

// AdjustQuantity는 수량을 스텝 사이즈 단위로 내림 조정합니다
func AdjustQuantity(quantity, stepSize float64, precision int) float64 {
	if stepSize <= 0 {
		return quantity
	}
	steps := math.Floor(quantity / stepSize)
	adjusted := steps * stepSize
	scale := math.Pow(10, float64(precision))
	return math.Floor(adjusted*scale) / scale
}

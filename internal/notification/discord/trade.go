package discord

import (
	"fmt"
	"time"

	"github.com/assist-by/apex/internal/notification"
)

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter("Apex Execution Engine 🤖").
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.errorWebhook, msg)
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter("Apex Execution Engine 🤖").
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.infoWebhook, msg)
}

// SendWarning은 리스크 관련 경고 알림을 전송합니다
func (c *Client) SendWarning(message string) error {
	embed := NewEmbed().
		SetTitle("리스크 경고").
		SetDescription(message).
		SetColor(notification.ColorWarning).
		SetFooter("Apex Execution Engine 🤖").
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.errorWebhook, msg)
}

// SendTradeInfo는 거래 실행 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("거래 실행: %s %s", info.Symbol, info.Direction)).
		SetColor(notification.GetColorForDirection(info.Direction)).
		SetFooter("Apex Execution Engine 🤖").
		SetTimestamp(time.Now())

	embed.AddField("수량", fmt.Sprintf("%d USDT", info.Quantity), true)
	embed.AddField("레버리지", fmt.Sprintf("%dx", info.Leverage), true)
	embed.AddField("재가격 횟수", fmt.Sprintf("%d회", info.EditCount), true)
	embed.AddField("진입가", fmt.Sprintf("계획 $%.2f / 체결 $%.2f", info.PlannedEntry, info.ActualEntry), false)
	embed.AddField("손절가", fmt.Sprintf("$%.2f", info.StopLoss), true)

	if info.TakeProfit != 0 {
		embed.AddField("목표가", fmt.Sprintf("$%.2f", info.TakeProfit), true)
	}

	embed.AddField("리스크", fmt.Sprintf("목표 %.4f / 실제 %.4f USDT", info.RiskAmount, info.ActualRisk), false)

	if info.Liquidation != 0 {
		embed.AddField("추정 청산가", fmt.Sprintf("$%.2f", info.Liquidation), true)
	}

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.tradeWebhook, msg)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaymentsClient создает платёжные ссылки на пополнение кошелька.
// Подтверждение оплаты приходит отдельным вебхуком с HMAC-подписью.
type PaymentsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPaymentsClient(baseURL, apiKey string) *PaymentsClient {
	return &PaymentsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type paymentLinkReq struct {
	WaID    string `json:"wa_id"`
	Credits int    `json:"credits"`
	Amount  int    `json:"amount"` // в минимальных единицах валюты
}

type paymentLinkResp struct {
	URL string `json:"url"`
}

func (p *PaymentsClient) CreatePaymentLink(ctx context.Context, waID string, credits, amount int) (string, error) {
	body, err := json.Marshal(paymentLinkReq{WaID: waID, Credits: credits, Amount: amount})
	if err != nil {
		return "", fmt.Errorf("marshal payment link request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payment_links", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var out paymentLinkResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payment gateway response: %w", err)
	}
	return out.URL, nil
}

package util

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"trafficcount/config"
)

// WebhookClient webhook客户端
type WebhookClient struct {
	Client *http.Client
}

// NewWebhookClient 创建webhook客户端
func NewWebhookClient() *WebhookClient {
	return &WebhookClient{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RenderTemplate 将 {{key}} 占位符替换为数据中的值
func RenderTemplate(tpl string, data map[string]interface{}) string {
	if tpl == "" || len(data) == 0 {
		return tpl
	}
	for key, value := range data {
		placeholder := fmt.Sprintf("{{%s}}", key)
		tpl = strings.ReplaceAll(tpl, placeholder, fmt.Sprintf("%v", value))
	}
	return tpl
}

// ExecuteWebhook 执行webhook请求
func (wc *WebhookClient) ExecuteWebhook(ctx context.Context, webhook config.WebhookConfig, data map[string]interface{}) error {
	if webhook.URL == "" {
		return fmt.Errorf("webhook URL is empty")
	}

	targetURL := webhook.URL
	bodyContent := RenderTemplate(webhook.Body, data)

	method := strings.ToUpper(webhook.Method)
	if method == "" {
		method = http.MethodPost
	}

	var req *http.Request
	var err error
	if method == http.MethodGet {
		// GET 请求把数据放到查询参数里
		if len(data) > 0 {
			keys := make([]string, 0, len(data))
			for key := range data {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			params := url.Values{}
			for _, key := range keys {
				params.Add(key, fmt.Sprintf("%v", data[key]))
			}
			if strings.Contains(targetURL, "?") {
				targetURL += "&" + params.Encode()
			} else {
				targetURL += "?" + params.Encode()
			}
		}
		req, err = http.NewRequestWithContext(ctx, method, targetURL, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, targetURL, bytes.NewReader([]byte(bodyContent)))
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// 处理请求头，每行一个 Key: Value
	for _, header := range strings.Split(webhook.Header, "\n") {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key != "" && value != "" {
			req.Header.Set(key, value)
		}
	}

	// 设置默认Content-Type
	if method != http.MethodGet && bodyContent != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := wc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %s", resp.Status)
	}
	return nil
}

// ExecuteWebhooks 批量执行webhooks
func (wc *WebhookClient) ExecuteWebhooks(ctx context.Context, webhooks []config.WebhookConfig, data map[string]interface{}) []error {
	var errs []error
	for _, webhook := range webhooks {
		if err := wc.ExecuteWebhook(ctx, webhook, data); err != nil {
			errs = append(errs, fmt.Errorf("webhook %s failed: %w", webhook.Name, err))
		}
	}
	return errs
}

package funfact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"map-puzzle/internal/metrics"
)

// 文档注释：外部 HTTP 文本服务适配器
// 背景：为自建或第三方文本服务提供进程外接入方式，通过简单 HTTP 契约实现查询与心跳。
// 约束：约定 /health 与 /fact?name= 接口，响应 {"text": "..."}；非 200 视为失败。
type HTTPProvider struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewHTTP(name, endpoint string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProvider{name: name, endpoint: strings.TrimRight(endpoint, "/"), client: &http.Client{Timeout: timeout}}
}

func (h *HTTPProvider) Name() string { return h.name }

func (h *HTTPProvider) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: heartbeat status %d", ErrProvider, resp.StatusCode)
	}
	return nil
}

func (h *HTTPProvider) Fact(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/fact?name="+url.QueryEscape(name), nil)
	if err != nil {
		return "", err
	}
	t0 := time.Now()
	metrics.FactRequestsTotal.WithLabelValues(h.name).Inc()
	resp, err := h.client.Do(req)
	if err != nil {
		metrics.FactFailTotal.WithLabelValues(h.name).Inc()
		return "", err
	}
	defer resp.Body.Close()
	metrics.FactDurationMs.WithLabelValues(h.name).Observe(float64(time.Since(t0).Milliseconds()))
	if resp.StatusCode != http.StatusOK {
		metrics.FactFailTotal.WithLabelValues(h.name).Inc()
		return "", fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}
	var m struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		metrics.FactFailTotal.WithLabelValues(h.name).Inc()
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if t := strings.TrimSpace(m.Text); t != "" {
		return t, nil
	}
	metrics.FactFailTotal.WithLabelValues(h.name).Inc()
	return "", fmt.Errorf("%w: empty text", ErrProvider)
}

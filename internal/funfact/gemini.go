package funfact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// 文档注释：Gemini generateContent REST 调用
// 参数：endpoint 形如 https://generativelanguage.googleapis.com/v1beta；model 如 gemini-2.5-flash；key 为空时直接返回 ErrMissingKey。
// 约束：只取第一个候选的文本片段拼接结果；非 200 或空文本视为失败。
type GeminiProvider struct {
	endpoint string
	model    string
	key      string
	client   *http.Client
}

func NewGemini(endpoint, model, key string, timeout time.Duration) *GeminiProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GeminiProvider{endpoint: strings.TrimRight(endpoint, "/"), model: model, key: key, client: &http.Client{Timeout: timeout}}
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) modelURL(suffix string) string {
	q := url.Values{}
	q.Set("key", g.key)
	return g.endpoint + "/models/" + url.PathEscape(g.model) + suffix + "?" + q.Encode()
}

func (g *GeminiProvider) Fact(ctx context.Context, name string) (string, error) {
	if g.key == "" {
		return "", ErrMissingKey
	}
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: Prompt(name)}}}}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.modelURL(":generateContent"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	t0 := time.Now()
	metrics.FactRequestsTotal.WithLabelValues(g.Name()).Inc()
	resp, err := g.client.Do(req)
	if err != nil {
		logger.L().Error("gemini_http_error", "err", err)
		metrics.FactFailTotal.WithLabelValues(g.Name()).Inc()
		return "", err
	}
	defer resp.Body.Close()
	var r geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("gemini_decode_error", "status", resp.StatusCode, "err", err)
		metrics.FactFailTotal.WithLabelValues(g.Name()).Inc()
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.FactDurationMs.WithLabelValues(g.Name()).Observe(float64(dur))
	if resp.StatusCode != http.StatusOK {
		metrics.FactFailTotal.WithLabelValues(g.Name()).Inc()
		msg := ""
		if r.Error != nil {
			msg = r.Error.Message
		}
		logger.L().Warn("gemini_status_error", "status", resp.StatusCode, "message", msg)
		return "", fmt.Errorf("%w: status %d %s", ErrProvider, resp.StatusCode, msg)
	}
	var sb strings.Builder
	if len(r.Candidates) > 0 {
		for _, p := range r.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		metrics.FactFailTotal.WithLabelValues(g.Name()).Inc()
		return "", fmt.Errorf("%w: empty candidate", ErrProvider)
	}
	logger.L().Debug("gemini_resp", "region", name, "duration_ms", dur)
	return text, nil
}

// Heartbeat：读取模型元数据；未配置凭据时不探测
func (g *GeminiProvider) Heartbeat(ctx context.Context) error {
	if g.key == "" {
		return ErrMissingKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.modelURL(""), nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: heartbeat status %d", ErrProvider, resp.StatusCode)
	}
	return nil
}

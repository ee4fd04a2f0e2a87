// 包 funfact：区域趣闻文本（外部文本生成服务 + 确定性兜底）
package funfact

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingKey：未配置服务凭据
var ErrMissingKey = errors.New("fun fact credential missing")

// ErrProvider：服务返回非预期结果
var ErrProvider = errors.New("fun fact provider error")

// 文档注释：文本服务提供方（统一契约）
// 约束：Fact 返回去除首尾空白的纯文本；Heartbeat 用于健康检测，失败的提供方暂不参与查询。
type Provider interface {
	Name() string
	Fact(ctx context.Context, name string) (string, error)
	Heartbeat(ctx context.Context) error
}

// Prompt：发送给文本生成服务的提示词
func Prompt(name string) string {
	return fmt.Sprintf("Give me one short, interesting, and unique fun fact about the US state of %s. Keep it under 20 words.", name)
}

// MissingKeyText：未配置凭据时的固定文本
func MissingKeyText(name string) string {
	return fmt.Sprintf("Did you know? %s is a great state! (AI key missing)", name)
}

// FailureText：服务失败时的固定文本
func FailureText(name string) string {
	return fmt.Sprintf("%s has a rich history!", name)
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 通知侧通道 — 记录提交/同步过程中的传输级失败需要让用户看到
// 作为显式依赖注入到服务层，核心引擎本身不感知通知
// =============================================================================

// Level 通知级别
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier 通知接口，每次失败尝试只产生一条人类可读消息
type Notifier interface {
	Notify(ctx context.Context, level Level, title, message string)
}

// Nop 空实现，测试和未配置webhook时使用
type Nop struct{}

func (Nop) Notify(context.Context, Level, string, string) {}

// WebhookNotifier 群机器人webhook通知
// 发送交互式消息卡片，标题按级别着色
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier 创建webhook通知器
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify 发送通知卡片
// 通知本身失败只记日志，不向上传播——通知不能阻断业务流程
func (n *WebhookNotifier) Notify(ctx context.Context, level Level, title, message string) {
	template := "blue"
	switch level {
	case LevelWarn:
		template = "orange"
	case LevelError:
		template = "red"
	}

	card := map[string]any{
		"config": map[string]any{"wide_screen_mode": true},
		"header": map[string]any{
			"title":    map[string]any{"tag": "plain_text", "content": title},
			"template": template,
		},
		"elements": []map[string]any{
			{"tag": "div", "text": map[string]any{"tag": "lark_md", "content": message}},
		},
	}
	body, err := json.Marshal(map[string]any{
		"msg_type": "interactive",
		"card":     card,
	})
	if err != nil {
		n.logger.Warn("序列化通知卡片失败", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("创建通知请求失败", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("发送通知失败", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn("通知webhook返回异常状态", zap.Int("status", resp.StatusCode))
	}
}

var _ Notifier = (*WebhookNotifier)(nil)
var _ Notifier = Nop{}

// FormatUpstreamFailure 生成传输失败的用户提示
func FormatUpstreamFailure(op string, err error) string {
	return fmt.Sprintf("**%s失败**\n%s", op, err.Error())
}

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitfantasy/nimo-qis/internal/qis/entity"
)

// ErrSessionExpired 上游会话过期（401）
// 必须与一般传输失败区分，调用方据此给出不同的用户提示
var ErrSessionExpired = errors.New("上游会话已过期，请重新登录")

// Client PDI上游系统HTTP客户端
// 记录的权威数据由上游持有，这里只负责取数和提交，
// 响应体形状不可信，一律交给归一化/合并引擎处理
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient 创建上游客户端
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SubmitPayload 提交给上游的序列化草稿
// quantity已强制为整数；措施列表只在编辑已有记录时携带
type SubmitPayload struct {
	ID                string          `json:"id,omitempty"`
	ProductionCode    string          `json:"productionCode"`
	Product           string          `json:"product"`
	Date              string          `json:"date"`
	Shift             string          `json:"shift"`
	DefectName        string          `json:"defectName"`
	AreaOfDefect      string          `json:"areaOfDefect"`
	Quantity          int             `json:"quantity"`
	Inspector         string          `json:"inspector"`
	Severity          string          `json:"severity"`
	Status            string          `json:"status,omitempty"`
	CorrectiveActions []entity.Action `json:"correctiveActions,omitempty"`
	PreventiveActions []entity.Action `json:"preventiveActions,omitempty"`
}

// FetchRecords 拉取全部PDI记录
// 返回解码后的任意JSON，形状修复交给归一化引擎
func (c *Client) FetchRecords(ctx context.Context) (any, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/pdi/records", nil)
}

// SubmitRecord 提交草稿：无ID走新建，有ID走更新
// 返回候选的服务端回显（可能为nil或形状不符），由合并引擎守卫
func (c *Client) SubmitRecord(ctx context.Context, payload SubmitPayload) (any, error) {
	if payload.ID == "" {
		return c.doRequest(ctx, http.MethodPost, "/api/v1/pdi/records", payload)
	}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/pdi/records/"+payload.ID, payload)
}

// UpdateStatus 更新记录状态
func (c *Client) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := c.doRequest(ctx, http.MethodPatch, "/api/v1/pdi/records/"+id+"/status",
		map[string]string{"status": status})
	return err
}

// DeleteRecord 删除记录
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/pdi/records/"+id, nil)
	return err
}

// FetchReference 拉取参考数据列表
// kind: employees/products/defects
func (c *Client) FetchReference(ctx context.Context, kind string) ([]entity.Reference, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/v1/pdi/references/"+kind, nil)
	if err != nil {
		return nil, err
	}

	items, ok := raw.([]any)
	if !ok {
		return []entity.Reference{}, nil
	}
	out := make([]entity.Reference, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ref := entity.Reference{}
		if id, ok := m["id"].(string); ok {
			ref.ID = id
		}
		if name, ok := m["name"].(string); ok {
			ref.Name = name
		} else if name, ok := m["displayName"].(string); ok {
			ref.Name = name
		}
		if ref.ID != "" {
			out = append(out, ref)
		}
	}
	return out, nil
}

// doRequest 执行上游API请求
// 自动添加Bearer token；401映射为ErrSessionExpired，其余非2xx返回带状态码的错误。
// 2xx但响应体不是合法JSON时返回(nil, nil)——下游按"响应形状不符"处理
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (any, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("创建上游请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求上游失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("上游返回异常状态 %d", resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil || len(respBytes) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, nil
	}
	return result, nil
}

// Package coach 健身问答：无状态地把用户资料、最近的对话与新问题转发给托管的对话模型。
package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
)

// Generator 对话模型（ark.ChatModel 满足此接口）
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Profile 用户资料
type Profile struct {
	Gender   string  `json:"gender" validate:"required,oneof=Male Female"`
	HeightCM float64 `json:"height_cm" validate:"gte=100,lte=250"`
	WeightKG float64 `json:"weight_kg" validate:"gte=30,lte=200"`
}

// Turn 一轮对话
type Turn struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content"`
}

// Request 问答请求
type Request struct {
	Profile Profile `json:"profile"`
	History []Turn  `json:"history" validate:"dive"`
	Message string  `json:"message" validate:"required"`
}

// Reply 问答响应
type Reply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Failed 为 true 时 Content 是模型错误提示
	Failed bool `json:"failed,omitempty"`
}

// APIErrorPrefix 模型调用失败时回复内容的前缀
const APIErrorPrefix = "⚠️ API Error: "

// OffTopicReply 非健身问题的固定回复
const OffTopicReply = "🚫 I can only answer fitness-related questions. Please ask about exercise, health, or nutrition."

var validate = validator.New(validator.WithRequiredStructEnabled())

// Coach 健身问答服务
type Coach struct {
	model      Generator
	maxHistory int
	logger     *zap.Logger
}

// Option 配置项
type Option func(*Coach)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coach) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxHistory 设置转发给模型的最大历史轮数，0 表示不转发历史
func WithMaxHistory(n int) Option {
	return func(c *Coach) {
		if n >= 0 {
			c.maxHistory = n
		}
	}
}

// New 创建问答服务
func New(m Generator, opts ...Option) *Coach {
	c := &Coach{model: m, maxHistory: 10, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig 按配置创建基于 ark.ChatModel 的问答服务（OpenAI 兼容接口）
func NewFromConfig(ctx context.Context, cfg config.CoachConfig, logger *zap.Logger) (*Coach, error) {
	mc := &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		mc.Timeout = &timeout
	}
	cm, err := ark.NewChatModel(ctx, mc)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "coach: init chat model", err)
	}
	return New(cm, WithLogger(logger), WithMaxHistory(cfg.MaxHistory)), nil
}

// Validate 校验请求
func Validate(req *Request) error {
	if err := validate.Struct(req); err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "coach: invalid request", err)
	}
	return nil
}

// SystemPrompt 生成带用户资料的系统提示
func SystemPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("You are a professional fitness and nutrition expert.\n")
	b.WriteString("Stay in character and only answer questions related to:\n")
	b.WriteString("workouts, exercise routines, weight management, nutrition, diet, health, or body composition.\n\n")
	b.WriteString("- Always be encouraging, clear, and easy to understand.\n")
	fmt.Fprintf(&b, "- Use user data (gender: %s, height: %s cm, weight: %s kg) to personalize advice.\n",
		p.Gender, trimFloat(p.HeightCM), trimFloat(p.WeightKG))
	b.WriteString("- If the user says 'yes', 'continue', or 'tell me more', continue naturally from your last answer.\n")
	b.WriteString("- If the question is NOT fitness-related, reply with:\n")
	fmt.Fprintf(&b, "  %q\n", OffTopicReply)
	return b.String()
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// Messages 组装发送给模型的消息：系统提示、最近 maxHistory 轮历史、新问题
func (c *Coach) Messages(req *Request) []*schema.Message {
	history := req.History
	if len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(SystemPrompt(req.Profile)))
	for _, t := range history {
		if t.Role == "assistant" {
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(t.Content))
		}
	}
	return append(msgs, schema.UserMessage(req.Message))
}

// Chat 校验请求并调用模型。模型错误不作为 error 返回，而是转成 APIErrorPrefix 开头的回复。
func (c *Coach) Chat(ctx context.Context, req *Request) (*Reply, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	out, err := c.model.Generate(ctx, c.Messages(req))
	if err != nil {
		c.logger.Warn("coach chat model failed", zap.Error(err))
		return &Reply{Role: "assistant", Content: APIErrorPrefix + err.Error(), Failed: true}, nil
	}
	if out == nil {
		return &Reply{Role: "assistant", Content: APIErrorPrefix + "empty response", Failed: true}, nil
	}
	return &Reply{Role: "assistant", Content: out.Content}, nil
}

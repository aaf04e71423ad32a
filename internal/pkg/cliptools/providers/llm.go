package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"pomelo/internal/pkg/ark"
)

// EinoProvider Eino 封装的 LLM 提供者（默认使用）
// 使用 eino-ext 的 ChatModel 实现。
// 实现了 cliptools.LLMProvider 接口
type EinoProvider struct {
	chatModel model.ChatModel
}

// NewEinoProvider 创建基于 Eino 的 LLM 提供者（默认推荐使用）
func NewEinoProvider(chatModel model.ChatModel) *EinoProvider {
	return &EinoProvider{
		chatModel: chatModel,
	}
}

// Generate 根据提示词生成文本（使用 eino ChatModel）
// 实现了 cliptools.LLMProvider 接口
func (p *EinoProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.chatModel == nil {
		return "", fmt.Errorf("chatModel is required")
	}

	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}

	response, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	content := response.Content
	if content == "" {
		return "", fmt.Errorf("empty response from chat model")
	}

	return content, nil
}

// ArkProvider Ark 实现的 LLM 提供者（使用 pkg/ark 的 Client）
// 实现了 cliptools.LLMProvider 接口
// 注意：推荐使用 EinoProvider（基于 eino-ext），此实现保留用于直连场景
type ArkProvider struct {
	client *ark.Client
}

// NewArkProvider 创建基于 Ark 的 LLM 提供者
func NewArkProvider(client *ark.Client) *ArkProvider {
	return &ArkProvider{
		client: client,
	}
}

// Generate 根据提示词生成文本（使用 Ark 客户端）
// 实现了 cliptools.LLMProvider 接口
func (p *ArkProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("ark client is required")
	}
	return p.client.CreateChatCompletionSimple(ctx, prompt)
}

package providers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pomelo/internal/pkg/ark"
	"pomelo/internal/pkg/cliptools"
)

// ArkImageProvider Ark 图片生成提供者
// 适配层，调用 ark.ArkImageClient（使用官方 Go SDK）。
// 实现了 cliptools.ImageProvider 接口
type ArkImageProvider struct {
	client *ark.ArkImageClient
}

// NewArkImageProvider 创建 Ark 图片生成提供者
func NewArkImageProvider(client *ark.ArkImageClient) *ArkImageProvider {
	return &ArkImageProvider{client: client}
}

// NewArkImageProviderFromEnv 从环境变量创建 Ark 图片生成提供者
func NewArkImageProviderFromEnv() (cliptools.ImageProvider, error) {
	config := ark.ArkImageConfigFromEnv()
	client, err := ark.NewArkImageClient(config)
	if err != nil {
		return nil, fmt.Errorf("create Ark Image client: %w", err)
	}
	return &ArkImageProvider{client: client}, nil
}

// GenerateImage 生成图片
// 实现了 cliptools.ImageProvider 接口
func (p *ArkImageProvider) GenerateImage(ctx context.Context, prompt, size string) ([]byte, error) {
	imageData, err := p.client.GenerateImage(ctx, prompt, size, false)
	if err != nil {
		return nil, fmt.Errorf("Ark generate image: %w", err)
	}

	log.Info().
		Str("size", size).
		Int("bytes", len(imageData)).
		Msg("Ark 首帧图片生成成功")

	return imageData, nil
}

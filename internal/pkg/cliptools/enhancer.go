package cliptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptEnhancer 提示词润色器
//
// 设计原则：
//   - 不负责落库 / 不依赖 HTTP 框架，只负责组装 prompt 并调用上层注入的 LLM 客户端
//   - 润色是尽力而为：大模型调用失败时回退到原始提示词，绝不中断流水线
type PromptEnhancer struct {
	llmProvider LLMProvider // 调用大模型的提供者（由上层注入，便于在不同环境下切换实现）
}

// NewPromptEnhancer 创建提示词润色器
func NewPromptEnhancer(llmProvider LLMProvider) *PromptEnhancer {
	return &PromptEnhancer{
		llmProvider: llmProvider,
	}
}

// Enhance 润色单条生成提示词
// 任何失败（provider 未注入、调用出错、返回为空）都返回原始提示词
func (pe *PromptEnhancer) Enhance(ctx context.Context, prompt string) string {
	if pe.llmProvider == nil {
		return prompt
	}

	enhanced, err := pe.llmProvider.Generate(ctx, pe.buildEnhancePrompt(prompt))
	if err != nil {
		log.Warn().Err(err).Msg("提示词润色失败，回退到原始提示词")
		return prompt
	}

	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		log.Warn().Msg("提示词润色返回为空，回退到原始提示词")
		return prompt
	}
	return enhanced
}

// buildEnhancePrompt 组装发给大模型的润色指令
func (pe *PromptEnhancer) buildEnhancePrompt(prompt string) string {
	return fmt.Sprintf(`你是视频生成提示词专家。请在不改变画面主体、环境、色调和镜头描述的前提下，
把下面的视频生成提示词润色得更具体、更有画面感。只输出润色后的提示词本身，不要任何解释。

原始提示词：
%s`, prompt)
}

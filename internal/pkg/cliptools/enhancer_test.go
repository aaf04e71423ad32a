package cliptools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeLLMProvider 可控返回值的假 LLM 提供者
type fakeLLMProvider struct {
	response string
	err      error
}

func (f *fakeLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestPromptEnhancer_Enhance(t *testing.T) {
	Convey("PromptEnhancer.Enhance 润色提示词，失败时回退", t, func() {
		ctx := context.Background()
		original := "山间清晨的薄雾。开场镜头"

		Convey("润色成功时返回润色结果", func() {
			enhancer := NewPromptEnhancer(&fakeLLMProvider{response: "润色后的提示词"})
			So(enhancer.Enhance(ctx, original), ShouldEqual, "润色后的提示词")
		})

		Convey("润色结果带空白时去除", func() {
			enhancer := NewPromptEnhancer(&fakeLLMProvider{response: "  润色后的提示词\n"})
			So(enhancer.Enhance(ctx, original), ShouldEqual, "润色后的提示词")
		})

		Convey("provider 未注入时返回原始提示词", func() {
			enhancer := NewPromptEnhancer(nil)
			So(enhancer.Enhance(ctx, original), ShouldEqual, original)
		})

		Convey("调用失败时回退到原始提示词", func() {
			enhancer := NewPromptEnhancer(&fakeLLMProvider{err: errors.New("rate limited")})
			So(enhancer.Enhance(ctx, original), ShouldEqual, original)
		})

		Convey("返回为空时回退到原始提示词", func() {
			enhancer := NewPromptEnhancer(&fakeLLMProvider{response: "   \n"})
			So(enhancer.Enhance(ctx, original), ShouldEqual, original)
		})
	})
}

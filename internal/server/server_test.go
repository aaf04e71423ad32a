package server

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/config"
	"pomelo/internal/pkg/cliptools/providers"
)

func TestBuildLLMProvider(t *testing.T) {
	Convey("buildLLMProvider 按配置选择 LLM 提供者", t, func() {
		ctx := context.Background()

		Convey("ark_direct 走官方 SDK 直连客户端", func() {
			p := buildLLMProvider(ctx, &config.AIConfig{
				Provider: "ark_direct",
				APIKey:   "test-key",
				Model:    "doubao-seed-1-6-flash-250615",
			})
			So(p, ShouldNotBeNil)
			_, ok := p.(*providers.ArkProvider)
			So(ok, ShouldBeTrue)
		})

		Convey("API Key 缺失但设置了 ARK_API_KEY 时回退到直连客户端", func() {
			t.Setenv("ARK_API_KEY", "env-key")
			p := buildLLMProvider(ctx, &config.AIConfig{})
			So(p, ShouldNotBeNil)
			_, ok := p.(*providers.ArkProvider)
			So(ok, ShouldBeTrue)
		})

		Convey("未配置 API Key 且无环境变量时返回 nil", func() {
			t.Setenv("ARK_API_KEY", "")
			p := buildLLMProvider(ctx, &config.AIConfig{Provider: "openai"})
			So(p, ShouldBeNil)
		})
	})
}

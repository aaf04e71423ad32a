package cliptools

import (
	"fmt"
	"math/rand"

	"pomelo/internal/model/pipeline"
)

// GenericContinuationPrompt 通用续接提示词
// 场景的逐段续接提示词耗尽时使用
const GenericContinuationPrompt = "继续上一段画面，无缝衔接，保持光线、镜头运动、画面风格和主体外观完全不变"

// SceneDescriptor 规划器产出的场景描述
// 产出后不可变；VisualSeed 与同一计划内的所有场景相同
type SceneDescriptor struct {
	Index               int            // 场景序号（从0开始）
	DurationSec         int            // 场景时长（秒）
	BasePrompt          string         // base 任务提示词
	ContinuationPrompts []string       // 逐段续接提示词（每个续接序号一条）
	VisualSeed          int            // 共享种子
	Style               pipeline.Style // 视觉风格
}

// ScenePlan 一次规划的完整结果
type ScenePlan struct {
	VisualSeed     int               // 共享种子（10000-99999）
	IdentityPhrase string            // 共享视觉身份描述，嵌入每条提示词
	Scenes         []SceneDescriptor // 有序场景列表
}

// Planner 场景规划器
// 纯函数式：不做 I/O，给定相同的输入和随机源时输出完全一致
type Planner struct {
	baseUnitSec int // 单次生成的最大时长（秒）
}

// NewPlanner 创建场景规划器
func NewPlanner(baseUnitSec int) *Planner {
	return &Planner{baseUnitSec: baseUnitSec}
}

// BaseUnitSec 返回单次生成的最大时长
func (p *Planner) BaseUnitSec() int {
	return p.baseUnitSec
}

// ExtensionsNeeded 计算某个时长的场景需要的续接次数
func (p *Planner) ExtensionsNeeded(durationSec int) int {
	if durationSec <= p.baseUnitSec {
		return 0
	}
	return (durationSec - p.baseUnitSec) / p.baseUnitSec
}

// 身份描述的取材词表，通过注入的随机源选取，保证可复现
var (
	identityPalettes = []string{
		"柔和的暖金色调",
		"清冷的蓝灰色调",
		"高对比的暮色调",
		"低饱和的晨雾色调",
	}
	identityLenses = []string{
		"35mm定焦镜头的浅景深",
		"广角镜头的开阔视野",
		"长焦镜头的压缩空间感",
	}
)

// 风格在提示词中的表达
var styleDescriptors = map[pipeline.Style]string{
	pipeline.StyleCinematic:   "电影级画面质感，细腻的光影层次",
	pipeline.StyleAnime:       "日式动画风格，干净的线条和明快的色块",
	pipeline.StyleRealistic:   "写实摄影风格，真实的材质和自然光",
	pipeline.StyleDocumentary: "纪录片风格，手持镜头的临场感",
}

// Plan 把请求的总时长规划为有序的场景列表
//
// 规则：
//   - 场景数 = ceil(totalDurationSec / baseUnit)，除最后一个场景外均为 baseUnit，
//     最后一个场景取余数（最少 1 秒）
//   - 整个计划共享一个种子和一个身份描述，嵌入每条提示词，
//     使相互独立的生成调用仍然呈现同一主体和环境
//   - 超过 baseUnit 的场景按续接序号预生成逐段续接提示词
//
// rng 由调用方注入，相同的 rng 状态产出相同的计划
func (p *Planner) Plan(topic string, totalDurationSec int, style pipeline.Style, rng *rand.Rand) (*ScenePlan, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if totalDurationSec <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %d", totalDurationSec)
	}
	if !style.IsValid() {
		return nil, fmt.Errorf("unknown style: %s", style)
	}

	// 共享种子取提供者可接受的区间
	visualSeed := 10000 + rng.Intn(90000)
	identityPhrase := p.buildIdentityPhrase(topic, style, rng)

	sceneCount := (totalDurationSec + p.baseUnitSec - 1) / p.baseUnitSec
	scenes := make([]SceneDescriptor, 0, sceneCount)

	remaining := totalDurationSec
	for i := 0; i < sceneCount; i++ {
		duration := p.baseUnitSec
		if remaining < p.baseUnitSec {
			duration = remaining
		}
		if duration < 1 {
			duration = 1
		}
		remaining -= duration

		scene := SceneDescriptor{
			Index:       i,
			DurationSec: duration,
			BasePrompt:  p.buildBasePrompt(topic, identityPhrase, style, i, sceneCount),
			VisualSeed:  visualSeed,
			Style:       style,
		}

		// 超过 baseUnit 的场景预生成逐段续接提示词，
		// 每段描述叙事的下一个节拍而不是复用同一句"继续"
		needed := p.ExtensionsNeeded(duration)
		for k := 1; k <= needed; k++ {
			scene.ContinuationPrompts = append(scene.ContinuationPrompts,
				p.buildContinuationPrompt(identityPhrase, i, k, needed))
		}

		scenes = append(scenes, scene)
	}

	return &ScenePlan{
		VisualSeed:     visualSeed,
		IdentityPhrase: identityPhrase,
		Scenes:         scenes,
	}, nil
}

// buildIdentityPhrase 构建共享视觉身份描述
func (p *Planner) buildIdentityPhrase(topic string, style pipeline.Style, rng *rand.Rand) string {
	palette := identityPalettes[rng.Intn(len(identityPalettes))]
	lens := identityLenses[rng.Intn(len(identityLenses))]
	return fmt.Sprintf("%s，%s，%s，主体外观和环境在所有镜头中保持一致", styleDescriptors[style], palette, lens)
}

// buildBasePrompt 构建场景的 base 任务提示词
// 按场景在整体中的位置给出叙事定位（开场/发展/收尾）
func (p *Planner) buildBasePrompt(topic, identityPhrase string, style pipeline.Style, index, total int) string {
	var beat string
	switch {
	case index == 0:
		beat = "开场镜头，交代主体和环境"
	case index == total-1:
		beat = "收尾镜头，画面渐趋平稳"
	default:
		beat = fmt.Sprintf("第%d幕，叙事推进，动作和镜头有明显变化", index+1)
	}
	return fmt.Sprintf("%s。%s。%s", topic, beat, identityPhrase)
}

// buildContinuationPrompt 构建第 k 段续接提示词
func (p *Planner) buildContinuationPrompt(identityPhrase string, sceneIndex, k, total int) string {
	var beat string
	switch {
	case k == total:
		beat = "动作收束，镜头缓慢拉远"
	case k == 1:
		beat = "动作延续并逐渐展开，镜头缓慢推进"
	default:
		beat = fmt.Sprintf("进入第%d个叙事节拍，主体动作持续演进", k+1)
	}
	return fmt.Sprintf("从上一段画面无缝继续。%s。%s", beat, identityPhrase)
}

package cliptools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pomelo/internal/model/pipeline"
	"pomelo/internal/pkg/ffmpeg"
)

// StitchConfig 拼接参数
type StitchConfig struct {
	Transition    pipeline.TransitionKind // 转场类型（xfade transition 名称）
	TransitionSec float64                 // 转场时长（秒）
	WorkDir       string                  // 工作目录（空则使用系统临时目录）
}

// StitchedArtifact 拼接产物
type StitchedArtifact struct {
	Data        []byte  // 成片数据
	SizeBytes   int64   // 文件大小
	DurationSec float64 // 总时长 = 片段时长之和 - (N-1)*转场时长
	ClipCount   int     // 参与拼接的片段数
	HasAudio    bool    // 输出是否带音频流
}

// Stitcher 片段拼接器
//
// 把有序的远程片段合成一个成片：全部下载到本地、探测时长和音频流、
// 构建链式交叉淡化滤镜图、调用一次转码引擎。
// 片段间音频流不一致时降级为纯视频输出而不是失败
type Stitcher struct {
	ff    *ffmpeg.Client
	cfg   StitchConfig
	httpc *http.Client
}

// NewStitcher 创建片段拼接器
func NewStitcher(ff *ffmpeg.Client, cfg StitchConfig) *Stitcher {
	if cfg.Transition == "" {
		cfg.Transition = pipeline.TransitionFade
	}
	return &Stitcher{
		ff:    ff,
		cfg:   cfg,
		httpc: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Stitch 拼接有序片段列表为一个成片
func (s *Stitcher) Stitch(ctx context.Context, clipURLs []string) (*StitchedArtifact, error) {
	if len(clipURLs) == 0 {
		return nil, fmt.Errorf("nothing to stitch")
	}

	workDir, err := os.MkdirTemp(s.cfg.WorkDir, "stitch_")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// 1. 全部下载到本地（转码引擎只接受本地输入）
	localPaths := make([]string, 0, len(clipURLs))
	for i, url := range clipURLs {
		localPath := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := s.downloadClip(ctx, url, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	// 2. 探测每个片段的时长和音频流
	durations := make([]float64, 0, len(localPaths))
	hasAudio := true
	for _, path := range localPaths {
		info, err := s.ff.Probe(ctx, path)
		if err != nil {
			return nil, &TranscodeError{Err: fmt.Errorf("probe %s: %w", path, err)}
		}
		durations = append(durations, info.Duration)
		if !info.HasAudio {
			hasAudio = false
		}
	}

	outputPath := filepath.Join(workDir, "output.mp4")

	// 3. 单片段快速路径：不构建滤镜图，直接重编码
	if len(localPaths) == 1 {
		if err := s.ff.Reencode(ctx, localPaths[0], outputPath); err != nil {
			return nil, &TranscodeError{Err: err}
		}
		return s.readArtifact(outputPath, durations[0], 1, hasAudio)
	}

	// 4. 多片段：链式 xfade 滤镜图，音频流齐全时叠加独立的 acrossfade 链
	filter := BuildXfadeFilter(durations, s.cfg.Transition.String(), s.cfg.TransitionSec)
	maps := []string{fmt.Sprintf("[v%d]", len(localPaths)-1)}
	if hasAudio {
		filter = filter + ";" + BuildAcrossfadeFilter(len(localPaths), s.cfg.TransitionSec)
		maps = append(maps, fmt.Sprintf("[a%d]", len(localPaths)-1))
	} else {
		log.Warn().Int("clips", len(localPaths)).Msg("部分片段缺少音频流，降级为纯视频输出")
	}

	if err := s.ff.Transcode(ctx, localPaths, filter, maps, outputPath); err != nil {
		return nil, &TranscodeError{Err: err}
	}

	return s.readArtifact(outputPath, StitchedDuration(durations, s.cfg.TransitionSec), len(localPaths), hasAudio)
}

// downloadClip 下载单个片段到本地
func (s *Stitcher) downloadClip(ctx context.Context, url, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, Err: fmt.Errorf("status code %d", resp.StatusCode)}
	}

	file, err := os.Create(localPath)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	return nil
}

// readArtifact 读取输出文件并组装产物
func (s *Stitcher) readArtifact(outputPath string, duration float64, clipCount int, hasAudio bool) (*StitchedArtifact, error) {
	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &TranscodeError{Err: fmt.Errorf("read output: %w", err)}
	}
	return &StitchedArtifact{
		Data:        data,
		SizeBytes:   int64(len(data)),
		DurationSec: duration,
		ClipCount:   clipCount,
		HasAudio:    hasAudio,
	}, nil
}

// BuildXfadeFilter 构建视频流的链式 xfade 滤镜图
//
// 第 i 个转场（0起）发生在前 i+1 个片段累计时长减去已消耗的转场重叠处：
//
//	offset_i = sum(d_0..d_i) - (i+1)*t
//
// 交叉淡化是重叠而非首尾相接，所以偏移逐级收缩
func BuildXfadeFilter(durations []float64, transition string, t float64) string {
	var parts []string
	prev := "[0:v]"
	cumulative := 0.0
	for i := 1; i < len(durations); i++ {
		cumulative += durations[i-1]
		offset := cumulative - float64(i)*t
		out := fmt.Sprintf("[v%d]", i)
		parts = append(parts, fmt.Sprintf("%s[%d:v]xfade=transition=%s:duration=%g:offset=%g%s",
			prev, i, transition, t, offset, out))
		prev = out
	}
	return strings.Join(parts, ";")
}

// BuildAcrossfadeFilter 构建音频流的链式 acrossfade 滤镜图
// acrossfade 自带重叠语义，不需要显式偏移
func BuildAcrossfadeFilter(n int, t float64) string {
	var parts []string
	prev := "[0:a]"
	for i := 1; i < n; i++ {
		out := fmt.Sprintf("[a%d]", i)
		parts = append(parts, fmt.Sprintf("%s[%d:a]acrossfade=d=%g%s", prev, i, t, out))
		prev = out
	}
	return strings.Join(parts, ";")
}

// StitchedDuration 计算拼接后的总时长
// 每个转场消耗一份重叠时长
func StitchedDuration(durations []float64, t float64) float64 {
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	if len(durations) <= 1 {
		return sum
	}
	return sum - float64(len(durations)-1)*t
}

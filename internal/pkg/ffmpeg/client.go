package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Client FFmpeg 客户端
// 用于封装 FFmpeg / FFprobe 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// VideoInfo 视频信息
type VideoInfo struct {
	Width    int     // 宽度
	Height   int     // 高度
	FPS      float64 // 帧率
	Duration float64 // 时长（秒）
	HasAudio bool    // 是否包含音频流
}

// probeOutput ffprobe -of json 的输出结构
type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe 获取视频信息（分辨率、帧率、时长、是否有音频流）
func (c *Client) Probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	// ffprobe -v error -show_entries stream=codec_type,width,height,r_frame_rate -show_entries format=duration -of json video.mp4
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probed probeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info VideoInfo
	for _, stream := range probed.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}

	if probed.Format.Duration != "" {
		duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", probed.Format.Duration, err)
		}
		info.Duration = duration
	}

	return &info, nil
}

// parseFrameRate 解析 r_frame_rate（格式: "30000/1001"）
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// Transcode 按 filter graph 转码
// inputs 按顺序映射为 0、1、2... 的输入编号；maps 指定输出流标签
func (c *Client) Transcode(ctx context.Context, inputs []string, filterComplex string, maps []string, outputPath string) error {
	args := []string{"-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}
	args = append(args, "-filter_complex", filterComplex)
	for _, m := range maps {
		args = append(args, "-map", m)
	}
	args = append(args,
		"-c:v", "libx264",
		"-crf", "20",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w: %s", err, tail(stderr.String(), 512))
	}

	log.Info().
		Int("inputs", len(inputs)).
		Str("output", outputPath).
		Msg("滤镜转码完成")

	return nil
}

// Reencode 重编码单个视频（统一编码参数，不加滤镜）
func (c *Client) Reencode(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-map", "0:v:0",
		"-map", "0:a?", // 可选音频流
		"-c:v", "libx264",
		"-crf", "20",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg reencode failed: %w: %s", err, tail(stderr.String(), 512))
	}

	log.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("视频重编码完成")

	return nil
}

// tail 截取字符串尾部，用于错误信息
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

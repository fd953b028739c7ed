package reel

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	FPS               = 24
	ClipDuration      = 5.0
	CrossfadeDuration = 1.0
	CaptionFade       = 0.5
)

// Runner executes an external tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s error: %w, output: %s", name, err, tail(stderr.String(), 20))
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Clip is one prepared segment of the reel.
type Clip struct {
	FileName string
	Slide    string
	Overlay  string // empty when the image has no caption
}

// TotalDuration is the reel length for n clips with crossfades.
func TotalDuration(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n)*ClipDuration - float64(n-1)*CrossfadeDuration
}

// EncodeJob describes one ffmpeg run.
type EncodeJob struct {
	Clips  []Clip
	Audio  string // empty for a silent reel
	Output string
}

// BuildArgs lays out the ffmpeg command line for job: every slide and
// overlay is a looped still input, overlays fade in and out on top of their
// slide, the first clip fades in from black and each later clip crossfades
// over the running result.
func BuildArgs(job EncodeJob) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	clipDur := formatSeconds(ClipDuration)
	var filters []string
	input := 0

	for k, clip := range job.Clips {
		args = append(args, "-loop", "1", "-framerate", strconv.Itoa(FPS), "-t", clipDur, "-i", clip.Slide)
		slide := input
		input++

		chain := fmt.Sprintf("[%d:v]", slide)
		if clip.Overlay != "" {
			args = append(args, "-loop", "1", "-framerate", strconv.Itoa(FPS), "-t", clipDur, "-i", clip.Overlay)
			overlay := input
			input++

			filters = append(filters, fmt.Sprintf(
				"[%d:v]format=rgba,fade=t=in:st=0:d=%s:alpha=1,fade=t=out:st=%s:d=%s:alpha=1[t%d]",
				overlay,
				formatSeconds(CaptionFade),
				formatSeconds(ClipDuration-CaptionFade),
				formatSeconds(CaptionFade),
				k))
			chain += fmt.Sprintf("[t%d]overlay=0:0,", k)
		}

		chain += fmt.Sprintf("fps=%d,setsar=1,format=yuv420p,trim=duration=%s,setpts=PTS-STARTPTS", FPS, clipDur)
		if k == 0 {
			chain += fmt.Sprintf(",fade=t=in:st=0:d=%s", formatSeconds(CrossfadeDuration))
		}
		filters = append(filters, fmt.Sprintf("%s[c%d]", chain, k))
	}

	last := "c0"
	for k := 1; k < len(job.Clips); k++ {
		offset := float64(k) * (ClipDuration - CrossfadeDuration)
		out := fmt.Sprintf("x%d", k)
		filters = append(filters, fmt.Sprintf("[%s][c%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
			last, k, formatSeconds(CrossfadeDuration), formatSeconds(offset), out))
		last = out
	}

	total := formatSeconds(TotalDuration(len(job.Clips)))
	if job.Audio != "" {
		args = append(args, "-stream_loop", "-1", "-i", job.Audio)
		filters = append(filters, fmt.Sprintf("[%d:a]atrim=0:%s,asetpts=PTS-STARTPTS[aout]", input, total))
	}

	args = append(args, "-filter_complex", strings.Join(filters, ";"), "-map", "["+last+"]")
	if job.Audio != "" {
		args = append(args, "-map", "[aout]", "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-r", strconv.Itoa(FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-t", total,
		"-y", job.Output,
	)
	return args
}

// ProbeDuration asks ffprobe for the length of a media file in seconds.
func ProbeDuration(ctx context.Context, runner Runner, ffprobe, path string) (float64, error) {
	out, err := runner.Run(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

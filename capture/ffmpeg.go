package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"node.town/autolingo/pcm"
)

// FFmpegDevice reads the microphone through an ffmpeg subprocess that
// resamples to mono s16le at the requested rate.
type FFmpegDevice struct {
	Path   string
	Format string
	Input  string
}

func (d FFmpegDevice) args(sampleRate int) []string {
	format := d.Format
	if format == "" {
		format = "pulse"
	}
	input := d.Input
	if input == "" {
		input = "default"
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", format,
		"-i", input,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-",
	}
}

func (d FFmpegDevice) Open(ctx context.Context, sampleRate int) (Stream, error) {
	path := d.Path
	if path == "" {
		path = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, path, d.args(sampleRate)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegStream{
		cmd:        cmd,
		r:          bufio.NewReader(stdout),
		sampleRate: sampleRate,
	}, nil
}

type ffmpegStream struct {
	cmd        *exec.Cmd
	r          *bufio.Reader
	buf        []byte
	sampleRate int
	closeOnce  sync.Once
	closeErr   error
}

func (s *ffmpegStream) Read(frame []float32) error {
	return readFrame(s.r, &s.buf, frame, s.sampleRate)
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		if _, ok := err.(*exec.ExitError); !ok {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// readFrame fills frame from s16le bytes on r, reusing buf between calls.
func readFrame(r io.Reader, buf *[]byte, frame []float32, sampleRate int) error {
	need := len(frame) * 2
	if cap(*buf) < need {
		*buf = make([]byte, need)
	}
	b := (*buf)[:need]

	if _, err := io.ReadFull(r, b); err != nil {
		return err
	}

	decoded, err := pcm.Decode(b, sampleRate)
	if err != nil {
		return err
	}
	copy(frame, decoded.Samples)
	return nil
}

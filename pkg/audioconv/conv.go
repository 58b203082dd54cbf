// Package audioconv decodes audio files into the mono 16 kHz float32 PCM
// the transcriber expects.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const targetRate = 16000

// raw is decoded interleaved PCM before normalization.
type raw struct {
	samples  []float32
	rate     int
	channels int
}

// DecodeFile reads path and returns mono 16 kHz samples. maxSamples, when
// positive, truncates the result.
func DecodeFile(path string, maxSamples int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decode(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, err
	}
	return normalize(r, maxSamples), nil
}

func decode(f *os.File, ext string) (raw, error) {
	switch ext {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga":
		return decodeOgg(f)
	}

	// No recognized extension: sniff the container magic.
	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return raw{}, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	case "ID3\x03", "ID3\x04":
		return decodeMP3(f)
	}
	return raw{}, fmt.Errorf("unsupported audio format %q", ext)
}

func decodeWAV(r io.ReadSeeker) (raw, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return raw{}, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return raw{}, err
	}
	if pb == nil || pb.Data == nil {
		return raw{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	samples := make([]float32, len(pb.Data))
	scale := 1.0 / float64(int64(1)<<(depth-1))
	for i, v := range pb.Data {
		samples[i] = float32(clamp(float64(v)*scale, -1, 1))
	}

	out := raw{samples: samples, rate: 44100, channels: 1}
	if pb.Format != nil {
		if pb.Format.SampleRate > 0 {
			out.rate = pb.Format.SampleRate
		}
		if pb.Format.NumChannels > 0 {
			out.channels = pb.Format.NumChannels
		}
	}
	return out, nil
}

func decodeMP3(r io.Reader) (raw, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return raw{}, err
	}
	var pcm bytes.Buffer
	if _, err := io.Copy(&pcm, dec); err != nil {
		return raw{}, err
	}

	ints := make([]int16, pcm.Len()/2)
	if err := binary.Read(bytes.NewReader(pcm.Bytes()), binary.LittleEndian, &ints); err != nil {
		return raw{}, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always emits interleaved stereo.
	return raw{samples: int16ToFloat32(ints), rate: rate, channels: 2}, nil
}

func decodeOgg(f *os.File) (raw, error) {
	if r, err := decodeVorbis(f); err == nil {
		return r, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return raw{}, err
	}
	r, err := decodeOpus(f)
	if err != nil {
		return raw{}, fmt.Errorf("cannot decode ogg as vorbis or opus: %w", err)
	}
	return r, nil
}

func decodeVorbis(r io.Reader) (raw, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return raw{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return raw{}, errors.New("invalid ogg/vorbis stream")
	}
	return raw{samples: pcm, rate: format.SampleRate, channels: format.Channels}, nil
}

func decodeOpus(rs io.ReadSeeker) (raw, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return raw{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		pcm []float32
		buf = make([]int16, 48000*ch/2) // ~0.5s per read
	)
	for {
		n, err := dec.Read(buf) // n = samples per channel
		if n > 0 {
			pcm = append(pcm, int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw{}, err
		}
	}

	// Opus always decodes at 48 kHz.
	return raw{samples: pcm, rate: 48000, channels: ch}, nil
}

// normalize downmixes to mono, resamples to the target rate, and applies
// the sample cap.
func normalize(r raw, maxSamples int) []float32 {
	out := r.samples
	if r.channels > 1 {
		out = downmix(out, r.channels)
	}
	if r.rate != targetRate {
		out = resample(out, r.rate, targetRate)
	}
	if maxSamples > 0 && len(out) > maxSamples {
		out = out[:maxSamples]
	}
	return out
}

func int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resample(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		switch {
		case i0 >= len(in):
			out[i] = in[len(in)-1]
		case i1 >= len(in):
			out[i] = in[i0]
		default:
			a := float32(src - float64(i0))
			out[i] = in[i0]*(1-a) + in[i1]*a
		}
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

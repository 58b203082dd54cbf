package speech

import (
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate   = 16000
	frameSize    = 320 // 20ms
	frameMillis  = 20
	silenceRMS   = 0.015
	silenceHold  = 600 * time.Millisecond
	maxUtterance = 10 * time.Second
)

// Recorder captures one mono 16 kHz utterance from the default input
// device, end-pointed on trailing silence.
type Recorder struct{}

func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Recorder{}, nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record reads frames until speech is followed by silenceHold of quiet, the
// utterance exceeds maxUtterance, or stop is signalled. The samples captured
// so far are returned in every case.
func (r *Recorder) Record(stop <-chan struct{}) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	maxFrames := int(maxUtterance/time.Millisecond) / frameMillis
	holdFrames := int(silenceHold/time.Millisecond) / frameMillis

	for i := 0; i < maxFrames; i++ {
		select {
		case <-stop:
			return out, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return out, err
		}

		if frameRMS(buf) > silenceRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silenceFrames++
			if silenceFrames >= holdFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

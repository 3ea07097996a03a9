// Package synth renders narration text into PCM audio. It is a
// procedural synthesizer: each word becomes a short harmonic tone whose
// pitch is derived from the word itself, so the same text always
// produces the same audio.
package synth

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"time"
	"unicode"
)

// DefaultSampleRate is used when the configuration does not set one.
const DefaultSampleRate = 22050

// Voice is a named preset of pitch range and speaking cadence.
type Voice struct {
	Name           string
	BasePitch      float64 // Fundamental frequency floor in Hz
	PitchSpan      float64 // Hash-derived variation above the floor in Hz
	WordsPerMinute int
}

var voices = []Voice{
	{Name: "narrator", BasePitch: 110, PitchSpan: 80, WordsPerMinute: 165},
	{Name: "bright", BasePitch: 175, PitchSpan: 95, WordsPerMinute: 180},
	{Name: "deep", BasePitch: 85, PitchSpan: 50, WordsPerMinute: 150},
}

// VoiceByName resolves a voice preset. Unknown names fall back to the
// narrator voice so a stale stored value never blocks generation.
func VoiceByName(name string) Voice {
	for _, v := range voices {
		if v.Name == name {
			return v
		}
	}
	return voices[0]
}

// Synthesizer turns narration text into 16-bit mono PCM samples.
type Synthesizer struct {
	sampleRate int
	voice      Voice
}

func New(sampleRate int, voice Voice) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Synthesizer{sampleRate: sampleRate, voice: voice}
}

func (s *Synthesizer) SampleRate() int {
	return s.sampleRate
}

// RenderSegment synthesizes one narration chunk. Words are separated by
// short gaps, commas by a breath pause and sentence endings by a longer
// one, including after the final word.
func (s *Synthesizer) RenderSegment(text string) []int16 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var out []int16
	wordGap := s.silence(40 * time.Millisecond)
	breathGap := s.silence(160 * time.Millisecond)
	sentenceGap := s.silence(320 * time.Millisecond)

	for i, word := range words {
		bare, pause := splitPause(word)
		if bare != "" {
			out = append(out, s.renderWord(bare)...)
		}
		switch {
		case pause == pauseSentence || i == len(words)-1:
			out = append(out, sentenceGap...)
		case pause == pauseBreath:
			out = append(out, breathGap...)
		default:
			out = append(out, wordGap...)
		}
	}
	return out
}

type pauseKind int

const (
	pauseNone pauseKind = iota
	pauseBreath
	pauseSentence
)

// splitPause strips trailing punctuation from a word and reports the
// pause it implies.
func splitPause(word string) (string, pauseKind) {
	trimmed := strings.TrimRightFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	pause := pauseNone
	for _, r := range word[len(trimmed):] {
		switch r {
		case '.', '!', '?':
			return trimmed, pauseSentence
		case ',', ';', ':':
			pause = pauseBreath
		}
	}
	return trimmed, pause
}

// renderWord produces a harmonic tone for a single word. The
// fundamental comes from a hash of the word and the length tracks the
// word's letter count around the voice's cadence.
func (s *Synthesizer) renderWord(word string) []int16 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(word)))
	pitch := s.voice.BasePitch + float64(h.Sum32())*s.voice.PitchSpan/float64(math.MaxUint32)

	base := 60.0 / float64(s.voice.WordsPerMinute)
	scale := 0.5 + 0.12*float64(letterCount(word))
	if scale > 1.8 {
		scale = 1.8
	}
	n := int(base * scale * float64(s.sampleRate))
	if n <= 0 {
		return nil
	}

	out := make([]int16, n)
	for i := range out {
		t := float64(i) / float64(s.sampleRate)
		// Let the pitch fall slightly over the word so it reads as
		// speech rather than a steady beep.
		f := pitch * (1.0 - 0.06*float64(i)/float64(n))
		v := 0.0
		amp := 1.0
		for harmonic := 1; harmonic <= 3; harmonic++ {
			v += amp * math.Sin(2*math.Pi*f*float64(harmonic)*t)
			amp *= 0.5
		}
		v /= 1.75
		out[i] = int16(v * envelope(i, n) * 9000)
	}
	return out
}

// envelope shapes a word with a linear attack and release so segments
// join without clicks.
func envelope(i, n int) float64 {
	attack := n / 6
	release := n / 4
	switch {
	case attack > 0 && i < attack:
		return float64(i) / float64(attack)
	case release > 0 && i >= n-release:
		return float64(n-i) / float64(release)
	default:
		return 1.0
	}
}

func (s *Synthesizer) silence(d time.Duration) []int16 {
	return make([]int16, int(d.Seconds()*float64(s.sampleRate)))
}

func letterCount(word string) int {
	count := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}

// WriteWAV writes samples as a canonical 44-byte-header RIFF/WAVE file
// with a single 16-bit mono PCM data chunk.
func WriteWAV(w io.Writer, sampleRate int, samples []int16) error {
	dataLen := len(samples) * 2

	// fmt chunk: uncompressed PCM, mono, 16 bits per sample.
	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	pcm := make([]byte, dataLen)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	_, err := w.Write(pcm)
	return err
}

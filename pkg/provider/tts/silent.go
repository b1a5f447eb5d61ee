package tts

import (
	"context"
	"encoding/binary"
	"time"
)

const (
	silentSampleRate = 16000
	silentChannels   = 1
	silentBitDepth   = 16
)

// Silent is the last-resort Synthesizer. It produces a short silent WAV so
// the caller's audio pipeline keeps working while the prompt text is shown on
// screen instead of spoken.
type Silent struct {
	// Duration of the generated clip. Zero means 200ms.
	Duration time.Duration
}

// Synthesize implements Synthesizer. The input text is ignored; every call
// returns the same silent clip.
func (s Silent) Synthesize(_ context.Context, _ string) (Audio, error) {
	d := s.Duration
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	samples := int(float64(silentSampleRate) * d.Seconds())
	dataSize := samples * silentChannels * silentBitDepth / 8

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], silentChannels)
	binary.LittleEndian.PutUint32(buf[24:28], silentSampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], silentSampleRate*silentChannels*silentBitDepth/8)
	binary.LittleEndian.PutUint16(buf[32:34], silentChannels*silentBitDepth/8)
	binary.LittleEndian.PutUint16(buf[34:36], silentBitDepth)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	// Sample bytes stay zero, which is silence in PCM.

	return Audio{Data: buf, MediaType: "audio/wav"}, nil
}

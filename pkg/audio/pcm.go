package audio

import "math"

// PCM16Sample is a frame of signed 16-bit little-endian PCM audio.
type PCM16Sample []int16

// BytesToPCM16 converts raw little-endian 16-bit PCM bytes into samples.
// A trailing odd byte is ignored.
func BytesToPCM16(data []byte) PCM16Sample {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make(PCM16Sample, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}

	return samples
}

// Bytes encodes the samples back into little-endian 16-bit PCM.
func (s PCM16Sample) Bytes() []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		out[i*2] = byte(v)
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// Float32 converts the samples to float32 in [-1, 1), the format the
// local whisper bindings expect.
func (s PCM16Sample) Float32() []float32 {
	out := make([]float32, len(s))
	for i, v := range s {
		out[i] = float32(v) / 32768.0
	}
	return out
}

// RMS returns the root mean square energy of the frame on the int16
// scale, so a typical quiet room sits well below the default phrase
// threshold of 300.
func RMS(s PCM16Sample) float64 {
	if len(s) == 0 {
		return 0
	}

	var sum float64
	for _, v := range s {
		f := float64(v)
		sum += f * f
	}

	return math.Sqrt(sum / float64(len(s)))
}

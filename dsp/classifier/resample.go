package classifier

import "encoding/binary"

// DecodePCM16LE decodes interleaved little-endian 16-bit PCM bytes into
// normalized float32 samples in [-1, 1].
func DecodePCM16LE(payload []byte) []float32 {
	n := len(payload) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// CubicResample resamples samples from srcRate to dstRate using Catmull-Rom
// cubic interpolation (spec §4.10b: "convert PCM-S16LE@48kHz to F32@16kHz
// (cubic resample)").
func CubicResample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	at := func(i int) float32 {
		if i < 0 {
			i = 0
		}
		if i >= len(samples) {
			i = len(samples) - 1
		}
		return samples[i]
	}

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		p0 := at(idx - 1)
		p1 := at(idx)
		p2 := at(idx + 1)
		p3 := at(idx + 2)

		out[i] = catmullRom(p0, p1, p2, p3, float32(frac))
	}
	return out
}

func catmullRom(p0, p1, p2, p3, t float32) float32 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

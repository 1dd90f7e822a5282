// Package compressor implements the soft-knee downward compressor/expander
// (spec §4.10c): a per-sample, per-channel RMS envelope follower with
// quadratic soft-knee gain computation, driving both a standalone
// audio -> audio node and the measure/adjust sidechain-coupled pair used by
// spec §8 scenario S6.
package compressor

import "math"

// Mode selects compressor or expander gain-computation semantics.
type Mode int

const (
	ModeCompressor Mode = iota
	ModeExpander
)

// Config holds the compressor/expander's tunable parameters (spec §4.10c).
type Config struct {
	Mode Mode

	ThresholdDB float64
	Ratio       float64 // compression/expansion ratio, e.g. 4 for 4:1
	KneeDB      float64 // total knee width in dB

	AttackSeconds  float64
	ReleaseSeconds float64
	SampleRate     int

	MakeupGainDB float64
	StereoLink   bool

	// FloorDB is the expander-only output floor: if gain would push the
	// output below FloorDB, lift gain to meet it.
	FloorDB float64
}

// DefaultConfig returns reasonable defaults for a voice compressor.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeCompressor,
		ThresholdDB:    -24,
		Ratio:          4,
		KneeDB:         6,
		AttackSeconds:  0.01,
		ReleaseSeconds: 0.15,
		SampleRate:     48000,
		MakeupGainDB:   0,
		FloorDB:        -90,
	}
}

// Processor is the stateful per-channel envelope follower.
type Processor struct {
	cfg Config

	attackAlpha  float64
	releaseAlpha float64

	env []float64 // per-channel envelope state

	// ReductionMeter is the last computed reduction (dB, <= 0) on channel 0,
	// surfaced to the sidechain bus by nodes/compressor in "measure" mode.
	ReductionMeter float64
}

// New constructs a processor for the given channel count.
func New(cfg Config, channels int) *Processor {
	p := &Processor{
		cfg: cfg,
		env: make([]float64, channels),
	}
	p.attackAlpha = alpha(cfg.AttackSeconds, cfg.SampleRate)
	p.releaseAlpha = alpha(cfg.ReleaseSeconds, cfg.SampleRate)
	return p
}

func alpha(tau float64, sampleRate int) float64 {
	if tau <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (tau * float64(sampleRate)))
}

// Process applies the compressor/expander in place to interleaved samples
// (one float32 per sample, channels interleaved).
func (p *Processor) Process(samples []float32, channels int) {
	if channels == 0 {
		return
	}
	if len(p.env) != channels {
		p.env = make([]float64, channels)
	}

	n := len(samples) / channels
	for i := 0; i < n; i++ {
		p.updateEnvelopes(samples, i, channels)
		gainDB := p.gainForFrame(channels)

		linear := math.Pow(10, (gainDB+p.cfg.MakeupGainDB)/20)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = float32(float64(samples[i*channels+ch]) * linear)
		}

		p.ReductionMeter = math.Min(0, gainDB)
	}
}

func (p *Processor) updateEnvelopes(samples []float32, frame, channels int) {
	for ch := 0; ch < channels; ch++ {
		x := float64(samples[frame*channels+ch])
		x2 := x * x
		a := p.releaseAlpha
		if x2 > p.env[ch] {
			a = p.attackAlpha
		}
		p.env[ch] = a*p.env[ch] + (1-a)*x2
	}
}

func (p *Processor) gainForFrame(channels int) float64 {
	level := p.levelDB(channels)
	return p.computeGainDB(level)
}

func (p *Processor) levelDB(channels int) float64 {
	env := p.env[0]
	if p.cfg.StereoLink {
		for ch := 1; ch < channels; ch++ {
			if p.env[ch] > env {
				env = p.env[ch]
			}
		}
	}
	return dbfs(math.Sqrt(env))
}

func dbfs(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}

// computeGainDB implements spec §4.10c's threshold/knee/ratio gain curve.
func (p *Processor) computeGainDB(levelDB float64) float64 {
	t := p.cfg.ThresholdDB
	knee := p.cfg.KneeDB
	r := p.cfg.Ratio
	if r <= 0 {
		r = 1
	}

	kneeLo := t - knee/2
	kneeHi := t + knee/2

	var gain float64
	switch p.cfg.Mode {
	case ModeCompressor:
		switch {
		case levelDB <= kneeLo:
			gain = 0
		case levelDB >= kneeHi:
			gain = (levelDB - t) * (1/r - 1)
		default:
			x := levelDB - kneeLo
			gain = x * x / (2 * knee) * (1/r - 1)
		}
	case ModeExpander:
		switch {
		case levelDB >= kneeHi:
			gain = 0
		case levelDB <= kneeLo:
			gain = (levelDB - t) * (r - 1)
		default:
			x := levelDB - kneeHi
			gain = -x * x / (2 * knee) * (r - 1)
		}
		expectedOut := levelDB + gain
		if expectedOut < p.cfg.FloorDB {
			gain = p.cfg.FloorDB - levelDB
		}
	}
	return gain
}

package main

import (
	"math"
	"math/rand"
)

const (
	stepJitter = 0.0002
	maxStep    = 0.0005
)

// walker moves a bike randomly around base, never straying further than
// spread degrees.
type walker struct {
	base   [2]float64
	spread float64
	pos    [2]float64
	vel    [2]float64
	rnd    *rand.Rand
}

func newWalker(lat, lng, spread float64, rnd *rand.Rand) *walker {
	return &walker{
		base:   [2]float64{lat, lng},
		spread: spread,
		pos:    [2]float64{lat, lng},
		vel:    [2]float64{0.0001, 0.0001},
		rnd:    rnd,
	}
}

func (w *walker) step() (lat, lng float64) {
	for i := range w.vel {
		w.vel[i] += (w.rnd.Float64() - 0.5) * stepJitter
		w.vel[i] = math.Max(-maxStep, math.Min(maxStep, w.vel[i]))
		w.pos[i] += w.vel[i]
	}

	dLat := w.pos[0] - w.base[0]
	dLng := w.pos[1] - w.base[1]
	if d := math.Hypot(dLat, dLng); d > w.spread {
		f := w.spread / d
		w.pos[0] = w.base[0] + dLat*f
		w.pos[1] = w.base[1] + dLng*f
		w.vel[0] *= -0.5
		w.vel[1] *= -0.5
	}
	return round6(w.pos[0]), round6(w.pos[1])
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// battery drains one percent every five samples and is swapped at 20%.
type battery struct {
	level int
	sends int
}

func (b *battery) tick() int {
	b.sends++
	if b.sends >= 5 {
		b.sends = 0
		b.level--
		if b.level < 20 {
			b.level = 70
		}
	}
	return b.level
}

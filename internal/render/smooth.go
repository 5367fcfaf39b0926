package render

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

const (
	springFrequency = 6.0
	springDamping   = 1.0

	defaultFrameRate = 43.0
)

// springField drives one damped spring per column.
type springField struct {
	spring harmonica.Spring
	vel    []float64
}

func newSpringField(fps float64, n int) springField {
	if fps <= 0 {
		fps = defaultFrameRate
	}
	return springField{
		spring: harmonica.NewSpring(harmonica.FPS(int(math.Round(fps))), springFrequency, springDamping),
		vel:    make([]float64, n),
	}
}

func (s *springField) step(i int, pos, target float64) float64 {
	p, v := s.spring.Update(pos, s.vel[i], target)
	s.vel[i] = v
	return p
}

func (s *springField) reset() {
	clear(s.vel)
}

// smooth blends the accumulated values into the smoothed buffer and
// updates the adaptive limits. Columns with no contributing slot copy
// the column to their left.
func (p *Pipeline) smooth() (floor, ceiling float64) {
	localMin, localMax := math.Inf(1), 0.0

	for i := range p.bins.numPoints {
		if p.bins.count[i] == 0 {
			if i > 0 {
				p.smoothed[i] = p.smoothed[i-1]
			}
			continue
		}

		var v float64
		switch p.smoothing {
		case SmoothSpring:
			v = p.spring.step(i, p.smoothed[i], p.acc[i])
		default:
			v = p.smoothed[i]*p.oldValueFactor + p.acc[i]*p.newValueFactor
		}
		v = max(v, 0)

		localMin = min(localMin, v)
		localMax = max(localMax, v)
		p.smoothed[i] = v
	}

	p.minLimit = p.minLimit*p.oldLimitFactor + localMin*p.newLimitFactor
	p.maxLimit = p.maxLimit*p.oldLimitFactor + localMax*p.newLimitFactor

	return p.minLimit, p.maxLimit
}

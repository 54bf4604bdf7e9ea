// Package steering estimates the true current steering angle from the
// history of issued commands.
package steering

import "math"

type timedCmd struct {
	stamp float64
	angle float64
}

// historyWindow bounds how far back stored commands are kept, in seconds.
const historyWindow = 3.0

// Predictor models the actuator as a first-order lag and integrates the
// issued-command history: the previous prediction decays exponentially
// and each command segment contributes its step response. Timestamps are
// relative seconds supplied by the caller, which keeps cycles
// deterministic under test.
type Predictor struct {
	tau      float64
	cmds     []timedCmd
	prevTime float64
	prev     float64
	primed   bool
}

func NewPredictor(steerTau float64) *Predictor {
	return &Predictor{tau: steerTau}
}

// Store records a command issued at the given time and drops entries that
// fell out of the history window.
func (p *Predictor) Store(angle, now float64) {
	p.cmds = append(p.cmds, timedCmd{stamp: now, angle: angle})
	for len(p.cmds) > 2 && p.cmds[0].stamp < now-historyWindow {
		p.cmds = p.cmds[1:]
	}
}

// Reset clears the history and the rolling prediction.
func (p *Predictor) Reset() {
	p.cmds = nil
	p.prev = 0
	p.prevTime = 0
	p.primed = false
}

// Predict advances the prediction to the given time.
func (p *Predictor) Predict(now float64) float64 {
	if !p.primed {
		p.primed = true
		p.prevTime = now
		return p.prev
	}
	duration := now - p.prevTime
	result := math.Exp(-duration/p.tau) * p.prev
	if len(p.cmds) > 2 {
		result += p.cmdSum(p.prevTime, now)
	}
	p.prev = result
	p.prevTime = now
	return result
}

// cmdSum accumulates the first-order step responses of the commands
// applied between tStart and tEnd.
func (p *Predictor) cmdSum(tStart, tEnd float64) float64 {
	idx := 1
	for tStart > p.cmds[idx].stamp {
		idx++
		if idx >= len(p.cmds) {
			return 0
		}
	}

	sum := 0.0
	t := tStart
	for idx < len(p.cmds) && tEnd > p.cmds[idx].stamp {
		duration := p.cmds[idx].stamp - t
		t = p.cmds[idx].stamp
		sum += (1 - math.Exp(-duration/p.tau)) * p.cmds[idx-1].angle
		idx++
	}
	duration := tEnd - t
	sum += (1 - math.Exp(-duration/p.tau)) * p.cmds[idx-1].angle
	return sum
}

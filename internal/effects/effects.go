// Package effects holds the master bus processors applied after voice mixing.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessBuffer runs the chain over interleaved stereo samples in place.
func (c *Chain) ProcessBuffer(buf []float32) {
	if c == nil || len(c.effects) == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = c.Process(buf[i], buf[i+1])
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.effects)
}

// Gain scales both channels by a fixed factor.
type Gain struct {
	Level float32
}

func (g *Gain) Process(l, r float32) (float32, float32) {
	return l * g.Level, r * g.Level
}

func (g *Gain) Reset() {}

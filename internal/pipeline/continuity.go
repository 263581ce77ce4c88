package pipeline

import "github.com/francesco-di-maggio/codecell/internal/sensor"

// Continuity removes the sign ambiguity between consecutive orientation
// samples. q and -q encode the same rotation and the fusion core is free
// to alternate between them frame to frame, which shows up as a visual
// flip on the receiver. The corrector keeps the representative whose dot
// product with the previous corrected sample is non-negative.
type Continuity struct {
	ref sensor.Quaternion
}

// Correct returns q or its negation, whichever continues the reference,
// and moves the reference to the returned value. The zero-value
// reference dots to 0 with everything, so the first sample passes
// through untouched. A genuine unit quaternion is never all-zero, the
// ambiguity is harmless.
func (c *Continuity) Correct(q sensor.Quaternion) sensor.Quaternion {
	if quatDot(q, c.ref) < 0 {
		q = sensor.Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	c.ref = q
	return q
}

func quatDot(a, b sensor.Quaternion) float32 {
	return a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

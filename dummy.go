package azplay

// UniformOracle is a neural network that knows nothing: every action is equally probable and every position is even.
// It is the starting point of the first generation, and a baseline for arenas.
type UniformOracle struct {
	ActionSpace int
}

func (d UniformOracle) Infer(a []float32) (policy []float32, value float32, err error) {
	policy = make([]float32, d.ActionSpace)
	for i := range policy {
		policy[i] = 1 / float32(d.ActionSpace)
	}
	return policy, 0, nil
}

// Train does nothing.
func (d UniformOracle) Train(batch []Example) error { return nil }

func (d UniformOracle) Close() error { return nil }

package dual

// Config configures the neural network
type Config struct {
	K            int     `json:"k"`             // number of filters
	SharedLayers int     `json:"shared_layers"` // number of shared residual blocks
	FC           int     `json:"fc"`            // fc layer width
	LearnRate    float64 `json:"learn_rate"`    // learn rate of the solver
	L2           float64 `json:"l2"`            // L2 regularization

	BatchSize     int `json:"batch_size"` // batch size
	Width, Height int // board size
	Features      int `json:"features"` // feature counts

	ActionSpace int  `json:"action_space"`
	FwdOnly     bool `json:"-"` // is this a fwd only graph?
}

// DefaultConf is a small network for a m×n board whose input is the three plane board encoding.
func DefaultConf(m, n, actionSpace int) Config {
	k := round((m * n) / 3)
	if k < 2 {
		k = 2
	}
	return Config{
		K:            k,
		SharedLayers: m,
		FC:           2 * k,
		LearnRate:    0.1,

		BatchSize:   64,
		Width:       n,
		Height:      m,
		Features:    3,
		ActionSpace: actionSpace,
	}
}

func (conf Config) IsValid() bool {
	return conf.K >= 1 &&
		conf.ActionSpace >= 3 &&
		conf.SharedLayers >= 0 &&
		conf.FC > 1 &&
		conf.BatchSize >= 1 &&
		conf.LearnRate > 0 &&
		conf.L2 >= 0 &&
		conf.Features > 0
}

// InputSize is the length of one encoded board.
func (conf Config) InputSize() int { return conf.Features * conf.Height * conf.Width }

func round(a int) int {
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	lt := n / 2
	if (a - lt) < (n - a) {
		return lt
	}
	return n
}

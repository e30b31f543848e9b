package kpisight

import "sort"

// ensembleState tracks aggregator progress. Transitions are forward-only:
// a rerun requires a fresh aggregator.
type ensembleState int

const (
	// ensemblePending holds the raw per-detector results.
	ensemblePending ensembleState = iota
	// ensembleScored holds normalized per-position combined scores.
	ensembleScored
	// ensembleRanked holds the ordered anomaly sequence with severities.
	ensembleRanked
	// ensembleDone is immutable and ready for MetricAnalysis construction.
	ensembleDone
)

func (s ensembleState) String() string {
	switch s {
	case ensemblePending:
		return "pending"
	case ensembleScored:
		return "scored"
	case ensembleRanked:
		return "ranked"
	case ensembleDone:
		return "done"
	default:
		return "unknown"
	}
}

// combinedPoint accumulates normalized detector scores for one position.
type combinedPoint struct {
	position int
	value    float64
	score    float64
	votes    int
	// first is the earliest contributing detector result, in method order,
	// used for the deviation figure.
	first AnomalyPoint
}

// EnsembleAggregator combines the outputs of multiple detectors over one
// series into a single ranked anomaly list. It moves through
// pending -> scored -> ranked -> done; calling a step out of order returns a
// StateError and leaves the aggregator unchanged.
type EnsembleAggregator struct {
	state    ensembleState
	series   Series
	methods  []Method
	raw      map[Method][]AnomalyPoint
	combined map[int]*combinedPoint
	ranked   []AnomalyPoint
}

// NewEnsembleAggregator runs the selected detectors over the series and
// holds their raw results in the pending state. The method subset must not
// contain ensemble or multivariate members.
func NewEnsembleAggregator(s Series, methods []Method, cfg AnalysisConfig) (*EnsembleAggregator, error) {
	if len(methods) == 0 {
		methods = []Method{MethodZScore, MethodIQR, MethodMovingAverage}
	}
	profile := cfg.Sensitivity.Thresholds()

	raw := make(map[Method][]AnomalyPoint, len(methods))
	for _, m := range methods {
		switch m {
		case MethodZScore:
			raw[m] = DetectZScore(s, profile.ZScore)
		case MethodIQR:
			raw[m] = DetectIQR(s, profile.IQRMultiplier)
		case MethodMovingAverage:
			raw[m] = DetectMovingAverage(s, cfg.MovingAverageWindow, profile.ZScore)
		case MethodIsolationForest:
			raw[m] = DetectIsolationForest(s, profile.Contamination)
		case MethodSeasonal:
			points, _ := DetectSeasonal(s, cfg.SeasonalPeriod)
			raw[m] = points
		default:
			return nil, newConfigError(ConfigErrorTypeParameter, "ensemble_methods", m.String()+" cannot join an ensemble")
		}
	}

	return &EnsembleAggregator{
		state:   ensemblePending,
		series:  s,
		methods: methods,
		raw:     raw,
	}, nil
}

// Score normalizes each detector's scores to [0,1] independently (min-max
// per detector) and sums them per flagged position. Transitions
// pending -> scored.
func (e *EnsembleAggregator) Score() error {
	if e.state != ensemblePending {
		return newStateError(StateErrorTypeTransition, "score",
			"aggregator is "+e.state.String()+", expected pending")
	}

	e.combined = make(map[int]*combinedPoint)
	for _, m := range e.methods {
		points := e.raw[m]
		if len(points) == 0 {
			continue
		}

		lo, hi := points[0].Score, points[0].Score
		for _, p := range points[1:] {
			if p.Score < lo {
				lo = p.Score
			}
			if p.Score > hi {
				hi = p.Score
			}
		}

		for _, p := range points {
			normalized := 1.0
			if hi > lo {
				normalized = (p.Score - lo) / (hi - lo)
			}
			cp, ok := e.combined[p.Position]
			if !ok {
				cp = &combinedPoint{position: p.Position, value: p.Value, first: p}
				e.combined[p.Position] = cp
			}
			cp.score += normalized
			cp.votes++
		}
	}

	e.state = ensembleScored
	return nil
}

// Rank orders the combined scores into an anomaly sequence with severities
// attached. Ties in combined score break by lowest position. Transitions
// scored -> ranked.
func (e *EnsembleAggregator) Rank() error {
	if e.state != ensembleScored {
		return newStateError(StateErrorTypeTransition, "rank",
			"aggregator is "+e.state.String()+", expected scored")
	}

	points := make([]*combinedPoint, 0, len(e.combined))
	for _, cp := range e.combined {
		points = append(points, cp)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].score != points[j].score {
			return points[i].score > points[j].score
		}
		return points[i].position < points[j].position
	})

	e.ranked = make([]AnomalyPoint, 0, len(points))
	for _, cp := range points {
		e.ranked = append(e.ranked, AnomalyPoint{
			Position:     cp.position,
			Value:        cp.value,
			Score:        cp.score,
			Method:       MethodEnsemble,
			Severity:     ClassifySeverity(cp.score, 1.0),
			DeviationPct: cp.first.DeviationPct,
			Context: map[string]float64{
				"votes":      float64(cp.votes),
				"confidence": float64(cp.votes) / float64(len(e.methods)),
			},
		})
	}

	e.state = ensembleRanked
	return nil
}

// Result finalizes the aggregator and returns the ranked anomaly sequence.
// Transitions ranked -> done; further calls return the same result.
func (e *EnsembleAggregator) Result() ([]AnomalyPoint, error) {
	switch e.state {
	case ensembleRanked:
		e.state = ensembleDone
		return e.ranked, nil
	case ensembleDone:
		return e.ranked, nil
	default:
		return nil, newStateError(StateErrorTypeTransition, "result",
			"aggregator is "+e.state.String()+", expected ranked")
	}
}

// DetectEnsemble runs the full aggregator over the series: a position is an
// ensemble anomaly when at least one constituent detector flagged it, ranked
// by the sum of per-detector normalized scores.
func DetectEnsemble(s Series, methods []Method, cfg AnalysisConfig) ([]AnomalyPoint, error) {
	agg, err := NewEnsembleAggregator(s, methods, cfg)
	if err != nil {
		return nil, err
	}
	if err := agg.Score(); err != nil {
		return nil, err
	}
	if err := agg.Rank(); err != nil {
		return nil, err
	}
	return agg.Result()
}

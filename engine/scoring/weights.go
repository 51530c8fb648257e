package scoring

// Weights combines the five per-chunk dimensions into AI_Trust_Score.
// This is the Go-native equivalent of a scoring_weights.json artifact:
// DefaultWeights is the built-in baseline and the only weight set the
// pipeline passes to the score stage; no weights file is read from the
// object store or from a configured path.
type Weights struct {
	Completeness     float64 `json:"completeness"`
	Quality          float64 `json:"quality"`
	Secure           float64 `json:"secure"`
	MetadataPresence float64 `json:"metadata_presence"`
	KBReady          float64 `json:"kb_ready"`
}

// DefaultWeights sums to 1.0, weighting textual quality and knowledge-base
// readiness most heavily since those dominate retrieval usefulness.
func DefaultWeights() Weights {
	return Weights{
		Completeness:     0.15,
		Quality:          0.30,
		Secure:           0.20,
		MetadataPresence: 0.10,
		KBReady:          0.25,
	}
}

// Combine computes the weighted sum. Callers are responsible for
// normalizing w beforehand if they load a partial override.
func (w Weights) Combine(completeness, quality, secure, metadata, kbReady float64) float64 {
	return completeness*w.Completeness +
		quality*w.Quality +
		secure*w.Secure +
		metadata*w.MetadataPresence +
		kbReady*w.KBReady
}

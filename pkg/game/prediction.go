package game

// SubPrediction is one labelled outcome of the analysis engine.
type SubPrediction struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Prediction is the analysis engine output. Only the color and size labels
// are read outside the engine.
type Prediction struct {
	Color   SubPrediction  `json:"color"`
	Size    SubPrediction  `json:"size"`
	Details map[string]any `json:"details,omitempty"`
}

// ResultDigest is the reduced view of a record returned to clients.
type ResultDigest struct {
	Period string     `json:"period"`
	Number DrawNumber `json:"number"`
}

// Response is the payload of a successful prediction request.
type Response struct {
	Success       bool           `json:"success"`
	Prediction    Prediction     `json:"prediction"`
	CurrentPeriod string         `json:"currentPeriod"`
	LastResults   []ResultDigest `json:"lastResults"`
}

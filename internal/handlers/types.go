package handlers

// PredictionResponse is the JSON body of a successful /predict call.
type PredictionResponse struct {
	Score     float64 `json:"score"`
	Class     string  `json:"class"`
	Heatmap   string  `json:"heatmap"`
	RequestID string  `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ModelLoaded bool   `json:"model_loaded"`
}

package dto

// ErrorResponse mirrors the {"error": ...} envelope of the detector backend.
type ErrorResponse struct {
	Error string `json:"error"`
}

type ThemeData struct {
	Theme string `json:"theme"`
}

type ResetData struct {
	Image string `json:"image"`
	Mode  string `json:"mode"`
}

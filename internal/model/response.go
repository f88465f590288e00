package model

// ApiResponse is the envelope every endpoint answers with.
type ApiResponse struct {
	Success  int          `json:"success"`
	Code     int          `json:"code"`
	Meta     ResponseMeta `json:"meta"`
	Data     any          `json:"data"`
	Message  string       `json:"message"`
	Duration float64      `json:"duration"`
}

type ResponseMeta struct {
	Method   string `json:"method"`
	Endpoint string `json:"endpoint"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

package response

type ErrorResponse struct {
	Message string `json:"error"`
}

package response

const (
	CodeOK            = 0
	CodeBadRequest    = 400
	CodeUnauthorized  = 401
	CodeNotFound      = 404
	CodeConflict      = 409
	CodeUnprocessable = 422
	CodeInternal      = 500
	CodeUpstream      = 502
)

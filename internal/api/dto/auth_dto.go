package dto

// LoginRequest carries user credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the issued token
type LoginResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

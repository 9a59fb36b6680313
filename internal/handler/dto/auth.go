package dto

// SignupRequest is the POST /api/auth/signup body.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse is the successful signup body.
type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque session token.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// MessageResponse is a bare confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

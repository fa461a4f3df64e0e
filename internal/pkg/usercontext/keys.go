package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeySessionContext = "SESSION_CONTEXT"
	KeyAuthenticated  = "authenticated"
	KeySessionEmail   = "session_email"
)

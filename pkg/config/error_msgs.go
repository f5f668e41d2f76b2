package config

const (
	RequestedSessionNotExist = "requested session does not exist"
	SessionAlreadyEnded      = "session has already ended"
	OnlyAdminCanRequest      = "only admin can send this request"
	NoSessionIdInToken       = "no sessionId in token"
	InvalidToken             = "invalid token"
	VerificationFailed       = "verification failed"
	ServiceNotConfigured     = "requested service is not configured"
	NoInputDevicesFound      = "no input devices found"
)

package middlewares

const (
	CtxRequestID  = "request_id"
	ctxSessionKey = "auth.session"
)

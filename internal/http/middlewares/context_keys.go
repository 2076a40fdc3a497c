package middlewares

// Keys stored on *gin.Context by the middlewares in this package.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
)

// Package response shapes every document-endpoint reply into the shared
// code/message/data envelope. Failures ride an HTTP 200 with the real
// status inside the envelope, so clients switch on one field.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type statusErr struct {
	status uint32
	msg    string
}

func (e statusErr) Error() string {
	return e.msg
}

func (e statusErr) Code() uint32 {
	return e.status
}

func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	proxyutil.SuccessJson(c, data)
}

// Error reports a failure with an HTTP-status-shaped code and a message
// safe to show to the caller.
func Error(c *gin.Context, status int, message string) {
	proxyutil.FailJson(c, 200, statusErr{status: uint32(status), msg: message})
}

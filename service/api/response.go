package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pkgerr "github.com/pkg/errors"

	"TeamWork/logger"
	"TeamWork/tools/errs"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// fail translates the error taxonomy to HTTP. Anything without a code
// is a 500 and gets logged with its stack.
func fail(c *gin.Context, err error) {
	var ce *errs.CodeError
	if pkgerr.As(err, &ce) {
		c.JSON(httpStatus(ce.Code), gin.H{
			"code":   ce.Code,
			"msg":    ce.Msg,
			"detail": ce.Detail,
		})
		return
	}
	logger.Errorf("[api] unhandled error: %+v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
}

func httpStatus(code int) int {
	switch code {
	case errs.CodeValidation, errs.CodeNoRecipients:
		return http.StatusBadRequest
	case errs.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case errs.CodeNoAssignment:
		return http.StatusNotFound
	case errs.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

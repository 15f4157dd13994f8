package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes an error envelope carrying a reason code.
func RespondError(c *gin.Context, code int, message, reason string, err error) {
	detail := ErrorDetail{Reason: reason}
	if err != nil {
		detail.Detail = err.Error()
	}
	RespondJSON(c, "error", code, message, nil, detail)
}

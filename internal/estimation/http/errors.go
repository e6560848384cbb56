package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/scopewise/estimation-backend/internal/api/http/middleware"
	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report json names instead of Go field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bind decodes the JSON body into req and translates binding failures into
// a ValidationError.
func bind(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		if field == "" {
			field = strings.ToLower(fe.StructField())
		}
		return domain.Invalid(field, validationMessage(fe))
	}
	return domain.Invalid("body", "invalid JSON body")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// fail writes the error response: 400 for validation, 404 for missing
// records and a generic 500 for everything else. Upstream and malformed
// model responses are not told apart.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": verr.Error(), "field": verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	default:
		h.logger.Error("request failed",
			"request_id", middleware.GetRequestID(c.Request.Context()),
			"operation", op,
			"error", err,
		)
		body := gin.H{"ok": false, "error": "Failed to process request"}
		if h.devMode {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

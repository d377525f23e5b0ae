package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sellerops/fba-fees/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator initializes the validator with custom validators.
// The same rules are registered on Gin's binding engine.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		registerRules(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerRules(v)
		}
	})

	return validate
}

func registerRules(v *validator.Validate) {
	_ = v.RegisterValidation("sku", validateSKU)
	_ = v.RegisterValidation("region", validateRegion)
	_ = v.RegisterValidation("length_unit", validateLengthUnit)
	_ = v.RegisterValidation("weight_unit", validateWeightUnit)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	return InitValidator()
}

var skuRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,39}$`)

func validateSKU(fl validator.FieldLevel) bool {
	return skuRegex.MatchString(fl.Field().String())
}

func validateRegion(fl validator.FieldLevel) bool {
	switch strings.ToUpper(strings.TrimSpace(fl.Field().String())) {
	case "US", "USA", "UK", "GB":
		return true
	}
	return false
}

func validateLengthUnit(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "", "cm", "in":
		return true
	}
	return false
}

func validateWeightUnit(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "", "kg", "g", "lb", "oz":
		return true
	}
	return false
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "sku":
		return "must be a valid SKU (1-40 letters, digits, dots, dashes or underscores)"
	case "region":
		return "must be a supported marketplace region (US, UK)"
	case "length_unit":
		return "must be one of: cm, in"
	case "weight_unit":
		return "must be one of: kg, g, lb, oz"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// ValidateVar validates a single value, such as a path parameter, against tag.
// It returns the failure message or nil.
func ValidateVar(value interface{}, tag string) *errors.AppError {
	if err := GetValidator().Var(value, tag); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			return errors.ErrValidation(formatValidationError(validationErrors[0]))
		}
		return errors.ErrValidation(err.Error())
	}
	return nil
}

// ContentType rejects POST and PUT bodies that are not JSON
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" {
			contentType := c.GetHeader("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") && c.Request.ContentLength > 0 {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: 415,
				})
				return
			}
		}
		c.Next()
	}
}

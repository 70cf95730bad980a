package errors

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/go-playground/validator/v10"
)

// Translate 将各种类型的错误转换为AppError
//
// 已经是AppError的直接返回；校验错误映射为400，超时映射为504，
// 其余作为处理失败返回原始消息。
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		return translateValidationErrors(validationErrors)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}

	return NewProcessingError(ErrCodeProcessingFailed, err)
}

// TranslateWith 与Translate相同，但对未识别的错误使用指定错误码
func TranslateWith(err error, code ErrorCode) *AppError {
	appErr := Translate(err)
	if appErr != nil && appErr.Code == ErrCodeProcessingFailed && !IsAppError(err) {
		appErr.Code = code
	}
	return appErr
}

// translateValidationErrors 转换验证错误，消息取第一个字段
func translateValidationErrors(validationErrors validator.ValidationErrors) *AppError {
	details := make([]map[string]interface{}, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		details = append(details, map[string]interface{}{
			"field":   fieldError.Field(),
			"tag":     fieldError.Tag(),
			"message": validationMessage(fieldError),
		})
	}

	message := "Validation failed"
	if len(validationErrors) > 0 {
		message = validationMessage(validationErrors[0])
	}

	return NewValidationError(message).
		WithCause(validationErrors).
		WithDetails(map[string]interface{}{
			"errors": details,
		})
}

// validationMessage 获取验证错误消息
func validationMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fieldError.Param()
	case "max":
		return field + " must be at most " + fieldError.Param()
	case "gt":
		return field + " must be greater than " + fieldError.Param()
	case "gte":
		return field + " must be greater than or equal to " + fieldError.Param()
	case "lte":
		return field + " must be less than or equal to " + fieldError.Param()
	case "oneof":
		return field + " must be one of: " + fieldError.Param()
	default:
		return field + " is invalid"
	}
}

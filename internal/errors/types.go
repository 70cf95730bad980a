package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
	ErrCodeMissingFile      ErrorCode = "MISSING_FILE"
	ErrCodeUnknownFeature   ErrorCode = "UNKNOWN_FEATURE"

	// 文件处理错误
	ErrCodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidFileFormat ErrorCode = "INVALID_FILE_FORMAT"
	ErrCodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
	ErrCodeProcessingFailed  ErrorCode = "PROCESSING_FAILED"
	ErrCodeConversionFailed  ErrorCode = "CONVERSION_FAILED"
	ErrCodeFeatureDisabled   ErrorCode = "FEATURE_DISABLED"

	// 外部服务错误
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
)

// 对外返回的固定提示
const (
	MsgNoFilePart          = "No file part"
	MsgNoSelectedFile      = "No selected file"
	MsgMissingReplaceText  = "Missing search_text or replace_text"
	MsgInvalidDocxFormat   = "Invalid file format. Please upload a .docx file."
	MsgInvalidFormat       = "Invalid file format"
	MsgNoMarkdownText      = "No markdown_text provided"
	MsgPDFConversionOff    = "PDF conversion is disabled in this deployment due to serverless size limits."
	MsgInternalServerError = "Internal server error"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeBusiness:
		return "business"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeExternal:
		return "external"
	default:
		return "system"
	}
}

// AppError 应用错误结构体
type AppError struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Type      ErrorType   `json:"type"`
	HTTPCode  int         `json:"-"`
	Details   interface{} `json:"details,omitempty"`
	Cause     error       `json:"-"`
	RequestID string      `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithRequestID 添加请求ID
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// 错误构造函数

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewBusinessError 创建业务错误
func NewBusinessError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: getHTTPCodeForError(code),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewMissingFileError 请求中没有文件
func NewMissingFileError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeMissingFile,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewMissingFieldError 缺少必填参数
func NewMissingFieldError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeMissingRequired,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewInvalidFormatError 文件扩展名不符合
func NewInvalidFormatError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidFileFormat,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewFileTooLargeError 上传文件超过限制
func NewFileTooLargeError(limit int64) *AppError {
	return &AppError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("File exceeds the %d byte upload limit", limit),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusRequestEntityTooLarge,
	}
}

// NewFeatureDisabledError 功能在当前部署中被关闭
func NewFeatureDisabledError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeFeatureDisabled,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewTimeoutError 操作超时
func NewTimeoutError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeTimeout,
		Message:  "Operation timed out",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusGatewayTimeout,
		Cause:    cause,
	}
}

// NewProcessingError 解析或转换失败，消息直接使用底层错误
func NewProcessingError(code ErrorCode, cause error) *AppError {
	return &AppError{
		Code:     code,
		Message:  cause.Error(),
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// getHTTPCodeForError 根据错误码获取HTTP状态码
func getHTTPCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidationFailed, ErrCodeMissingRequired, ErrCodeMissingFile,
		ErrCodeInvalidFileFormat, ErrCodeUnknownFeature, ErrCodeFeatureDisabled, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取AppError，如果不是则包装为处理错误（保留原始消息）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewProcessingError(ErrCodeProcessingFailed, err)
}

package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError converts a Drive failure into a RemoteAPIError-family AppError
func ClassifyGoogleAPIError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if stderrors.Is(err, context.Canceled) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCancelled, "operation cancelled").
			WithContext("traceId", reqCtx.TraceID).
			Build(), err)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeTimeout, "operation timed out").
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			Build(), err)
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		logger.Error("Non-API error",
			logging.F("error", err.Error()),
			logging.F("traceId", reqCtx.TraceID),
		)
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError, err.Error()).
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("service", service).
			Build(), err)
	}

	code := utils.ErrCodeRemoteAPI
	retryable := false

	switch apiErr.Code {
	case http.StatusBadRequest:
		code = utils.ErrCodeInvalidArgument
	case http.StatusUnauthorized:
		code = utils.ErrCodeAuthExpired
	case http.StatusForbidden:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "userRateLimitExceeded", "rateLimitExceeded":
				code = utils.ErrCodeRateLimited
				retryable = true
			case "dailyLimitExceeded":
				code = utils.ErrCodeRateLimited
			case "insufficientPermissions":
				code = utils.ErrCodeScopeInsufficient
			}
		}
	case http.StatusNotFound:
		code = utils.ErrCodeFileNotFound
	case http.StatusTooManyRequests:
		code = utils.ErrCodeRateLimited
		retryable = true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = utils.ErrCodeNetworkError
		retryable = true
	default:
		retryable = apiErr.Code >= 500
	}

	logger.Error("API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", apiErr.Message),
		logging.F("traceId", reqCtx.TraceID),
		logging.F("service", service),
	)

	message := apiErr.Message
	if message == "" {
		message = http.StatusText(apiErr.Code)
	}

	builder := utils.NewCLIError(code, message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("service", service)

	if len(apiErr.Errors) > 0 {
		builder.WithDriveReason(apiErr.Errors[0].Reason)
		switch apiErr.Errors[0].Reason {
		case "fileNotDownloadable", "cannotDownloadAbusiveFile":
			builder.WithContext("suggestedAction", "file has no downloadable content; exclude it from the mirror")
		case "dailyLimitExceeded":
			builder.WithContext("suggestedAction", "quota will reset in 24 hours")
		}
	}

	switch code {
	case utils.ErrCodeAuthExpired:
		builder.WithContext("suggestedAction", "check the service account key or run 'gdmirror auth import'")
	case utils.ErrCodeScopeInsufficient:
		builder.WithContext("suggestedAction", "grant the drive.readonly scope to the credentials")
	case utils.ErrCodeFileNotFound:
		if len(reqCtx.InvolvedFileIDs) > 0 {
			builder.WithContext("fileIds", reqCtx.InvolvedFileIDs)
		}
	case utils.ErrCodeRateLimited:
		builder.WithContext("suggestedAction", "lower request volume or wait before retrying")
	}

	if apiErr.Code >= 500 && apiErr.Code <= 504 {
		builder.WithContext("serverError", true)
	}

	return utils.WrapAppError(builder.Build(), err)
}

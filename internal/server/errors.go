package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/blob"
	"github.com/batch-hub/batch-hub/internal/remote"
	"github.com/batch-hub/batch-hub/internal/service"
	"github.com/batch-hub/batch-hub/internal/store"
)

// 错误载荷中的 type 标记，客户端据此做分支而非解析 message。
const (
	errTypeValidation  = "validation_error"
	errTypeNotFound    = "not_found"
	errTypeRateLimited = "rate_limited"
	errTypeRemote      = "remote_error"
	errTypeStorage     = "storage_error"
	errTypeInternal    = "internal_error"
)

// RenderError 将管道的类型化错误映射到 HTTP 状态码与统一的 JSON 错误信封。
// 限流错误额外携带 Retry-After 响应头。
func RenderError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	status, errType := classify(err)

	var rateLimited *remote.RateLimitError
	if errors.As(err, &rateLimited) {
		c.Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
	}

	logger.WithFields(logrus.Fields{
		"action":     "request_error",
		"request_id": RequestID(c),
		"status":     status,
		"error_type": errType,
	}).Warn(err.Error())

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"errors": []fiber.Map{
			{"type": errType, "message": err.Error()},
		},
	})
}

func classify(err error) (int, string) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return fiber.StatusBadRequest, errTypeValidation
	}

	var orgNotFound *remote.OrgNotFoundError
	if errors.As(err, &orgNotFound) {
		return fiber.StatusNotFound, errTypeNotFound
	}
	var batchNotFound *remote.BatchNotFoundError
	if errors.As(err, &batchNotFound) {
		return fiber.StatusNotFound, errTypeNotFound
	}

	var rateLimited *remote.RateLimitError
	if errors.As(err, &rateLimited) {
		return fiber.StatusTooManyRequests, errTypeRateLimited
	}

	var parseErr *remote.ParseError
	if errors.As(err, &parseErr) {
		return fiber.StatusBadGateway, errTypeRemote
	}
	var downloadErr *remote.DownloadError
	if errors.As(err, &downloadErr) {
		return fiber.StatusBadGateway, errTypeRemote
	}

	var storageErr *store.StorageError
	if errors.As(err, &storageErr) {
		return fiber.StatusInternalServerError, errTypeStorage
	}
	var blobErr *blob.StorageError
	if errors.As(err, &blobErr) {
		return fiber.StatusInternalServerError, errTypeStorage
	}

	return fiber.StatusInternalServerError, errTypeInternal
}

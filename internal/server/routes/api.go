// Package routes registers the batch API surface onto the Fiber application.
// Handlers translate HTTP parameters into service calls and encode entities
// into response payloads; all error rendering goes through the server package
// so every endpoint shares one error envelope.
package routes

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/batch-hub/batch-hub/internal/entity"
	"github.com/batch-hub/batch-hub/internal/server"
	"github.com/batch-hub/batch-hub/internal/service"
)

// RegisterAPIRoutes 将批次 API 挂载到应用上。
func RegisterAPIRoutes(app *fiber.App, svc *service.Service, logger *logrus.Logger) {
	if app == nil || svc == nil {
		return
	}

	app.Get("/api/org/:orgCode/batches", func(c fiber.Ctx) error {
		orgCode := c.Params("orgCode")
		org, batches, err := svc.FetchMetadata(c.Context(), orgCode, refreshParam(c))
		if err != nil {
			return server.RenderError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"org":     encodeOrg(org),
			"batches": encodeBatches(batches),
		})
	})

	app.Get("/api/org/:orgCode/batch/:batchID/download", func(c fiber.Ctx) error {
		result, err := svc.DownloadOne(c.Context(), c.Params("batchID"), c.Params("orgCode"))
		if err != nil {
			return server.RenderError(c, logger, err)
		}

		contentType := result.Batch.ContentType
		if contentType == "" {
			contentType = service.ContentTypeForFilename(result.Batch.Filename)
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", result.Batch.Filename))
		c.Set("X-Content-Tier", result.Tier)
		return c.Send(result.Data)
	})

	app.Post("/api/org/:orgCode/sync", func(c fiber.Ctx) error {
		snapshot, err := svc.DownloadAll(c.Context(), c.Params("orgCode"), refreshParam(c))
		if err != nil {
			return server.RenderError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"progress": encodeProgress(snapshot),
		})
	})

	app.Get("/api/batch/:batchID", func(c fiber.Ctx) error {
		batch, err := svc.GetBatchInfo(c.Context(), c.Params("batchID"))
		if err != nil {
			return server.RenderError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"batch":   encodeBatch(batch),
		})
	})

	app.Delete("/api/org/:orgCode", func(c fiber.Ctx) error {
		result, err := svc.DeleteOrg(c.Context(), c.Params("orgCode"))
		if err != nil {
			return server.RenderError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"org_deleted":     result.OrgDeleted,
			"batches_deleted": result.BatchesDeleted,
			"blobs_deleted":   result.BlobsDeleted,
		})
	})
}

func refreshParam(c fiber.Ctx) bool {
	refresh, err := strconv.ParseBool(c.Query("refresh", "false"))
	return err == nil && refresh
}

type orgPayload struct {
	OrgCode    string `json:"org_code"`
	OrgName    string `json:"org_name"`
	BatchCount int    `json:"batch_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type batchPayload struct {
	BatchID       string `json:"batch_id"`
	OrgCode       string `json:"org_code"`
	BatchName     string `json:"batch_name"`
	Filename      string `json:"filename"`
	FileSize      int64  `json:"file_size"`
	FileSizeHuman string `json:"file_size_human"`
	ContentType   string `json:"content_type,omitempty"`
	Downloaded    bool   `json:"downloaded"`
	DownloadedAt  string `json:"downloaded_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type progressPayload struct {
	Total           int     `json:"total"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	Percentage      float64 `json:"percentage"`
	Complete        bool    `json:"complete"`
	DurationMs      int64   `json:"duration_ms"`
}

func encodeOrg(org *entity.Org) orgPayload {
	return orgPayload{
		OrgCode:    org.OrgCode,
		OrgName:    org.OrgName,
		BatchCount: org.BatchCount,
		CreatedAt:  org.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  org.UpdatedAt.Format(time.RFC3339),
	}
}

func encodeBatches(batches []*entity.Batch) []batchPayload {
	result := make([]batchPayload, 0, len(batches))
	for _, batch := range batches {
		result = append(result, encodeBatch(batch))
	}
	return result
}

func encodeBatch(batch *entity.Batch) batchPayload {
	payload := batchPayload{
		BatchID:       batch.BatchID,
		OrgCode:       batch.OrgCode,
		BatchName:     batch.BatchName,
		Filename:      batch.Filename,
		FileSize:      batch.FileSize,
		FileSizeHuman: service.FormatFileSize(batch.FileSize),
		ContentType:   batch.ContentType,
		Downloaded:    batch.Downloaded(),
		CreatedAt:     batch.CreatedAt.Format(time.RFC3339),
	}
	if batch.DownloadedAt != nil {
		payload.DownloadedAt = batch.DownloadedAt.Format(time.RFC3339)
	}
	return payload
}

func encodeProgress(snapshot entity.ProgressSnapshot) progressPayload {
	return progressPayload{
		Total:           snapshot.Total,
		Succeeded:       snapshot.Succeeded,
		Failed:          snapshot.Failed,
		DownloadedBytes: snapshot.DownloadedBytes,
		Percentage:      snapshot.Percentage(),
		Complete:        snapshot.IsComplete(),
		DurationMs:      snapshot.Duration().Milliseconds(),
	}
}

package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"menudocs/internal/logger"
	"menudocs/internal/model"
	"menudocs/internal/service"
)

// Pinger is the part of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type getDataRequest struct {
	MenuName string `json:"menu_name" form:"menu_name"`
}

type createRequest struct {
	FileType   string `json:"file_type" form:"file_type"`
	Name       string `json:"name" form:"name"`
	Menu       string `json:"menu" form:"menu"`
	FolderName string `json:"folder_name" form:"folder_name"`
}

type createdDocument struct {
	ID          int64  `json:"id"`
	FileType    string `json:"file_type"`
	Name        string `json:"name"`
	Menu        string `json:"menu"`
	FolderName  string `json:"folder_name,omitempty"`
	FolderID    *int64 `json:"folder_id,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type createdFolder struct {
	ID       int64  `json:"id"`
	FileType string `json:"file_type"`
	Name     string `json:"name"`
	Menu     string `json:"menu"`
}

type createResponse struct {
	Message  string           `json:"message"`
	Document *createdDocument `json:"document,omitempty"`
	Folder   *createdFolder   `json:"folder,omitempty"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db Pinger, svc service.LibraryService, log *slog.Logger) {
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/getData", GetData(svc, log))
	api.Post("/postDocument", PostDocument(svc, log))
	api.Get("/document/:id", GetDocument(svc, log))
	api.Get("/folders", ListFolders(svc, log))
}

// RegisterMetrics serves the Prometheus exposition for g at /metrics.
func RegisterMetrics(app *fiber.App, g prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// HealthCheck checks DB connectivity only.
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// GetData godoc
// @Summary  List folders and documents under a menu
// @Tags     menus
// @Accept   json
// @Produce  json
// @Param    body body getDataRequest true "menu"
// @Success  200 {object} service.MenuContents
// @Failure  500 {object} errorPayload
// @Router   /api/getData [post]
func GetData(svc service.LibraryService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req getDataRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			}
		}

		res, err := svc.MenuContents(c.UserContext(), req.MenuName)
		if err != nil {
			return internalError(c, log, "get_data_failed", err)
		}
		return c.JSON(res)
	}
}

// PostDocument godoc
// @Summary  Upload a document or create a folder
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Param    file_type   formData string true  "Document or Folder"
// @Param    name        formData string true  "name"
// @Param    menu        formData string true  "menu"
// @Param    folder_name formData string false "folder name"
// @Param    file        formData file   false "PDF, JPEG, PNG or plain text; required for documents"
// @Success  200 {object} createResponse
// @Failure  400 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /api/postDocument [post]
func PostDocument(svc service.LibraryService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			}
		}

		in := service.CreateInput{
			FileType:   req.FileType,
			Name:       req.Name,
			Menu:       req.Menu,
			FolderName: req.FolderName,
		}
		// FormFile fails for non-multipart bodies; that is the same as no file.
		if fh, err := c.FormFile("file"); err == nil {
			in.File = uploadFromHeader(fh)
		}

		res, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return serviceError(c, log, "post_document_failed", err)
		}

		if res.Folder != nil {
			return c.JSON(createResponse{
				Message: "Folder created successfully",
				Folder:  folderResponse(res.Folder),
			})
		}
		return c.JSON(createResponse{
			Message:  "Document uploaded successfully",
			Document: documentResponse(res.Document),
		})
	}
}

// GetDocument godoc
// @Summary  Download a document
// @Tags     documents
// @Produce  application/pdf,image/jpeg,image/png,text/plain
// @Param    id path int true "document id"
// @Success  200 {file} binary
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /api/document/{id} [get]
func GetDocument(svc service.LibraryService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := svc.Document(c.UserContext(), id)
		if err != nil {
			return serviceError(c, log, "get_document_failed", err)
		}

		c.Set(fiber.HeaderContentType, res.ContentType)
		if cd := mime.FormatMediaType("inline", map[string]string{"filename": res.Document.Name}); cd != "" {
			c.Set(fiber.HeaderContentDisposition, cd)
		}
		return c.Send(res.Data)
	}
}

// ListFolders godoc
// @Summary  List every folder
// @Tags     folders
// @Produce  json
// @Success  200 {array}  model.Folder
// @Failure  500 {object} errorPayload
// @Router   /api/folders [get]
func ListFolders(svc service.LibraryService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		folders, err := svc.Folders(c.UserContext())
		if err != nil {
			return internalError(c, log, "list_folders_failed", err)
		}
		return c.JSON(folders)
	}
}

func uploadFromHeader(fh *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func documentResponse(d *model.Document) *createdDocument {
	return &createdDocument{
		ID:          d.ID,
		FileType:    d.FileType,
		Name:        d.Name,
		Menu:        d.MenuName,
		FolderName:  d.FolderName,
		FolderID:    d.FolderID,
		ContentType: d.ContentType,
		Size:        d.Size,
	}
}

func folderResponse(f *model.Folder) *createdFolder {
	return &createdFolder{
		ID:       f.ID,
		FileType: model.FileTypeFolder,
		Name:     f.Name,
		Menu:     f.MenuName,
	}
}

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"menudocs/internal/classifier"
	"menudocs/internal/logger"
	"menudocs/internal/model"
	"menudocs/internal/repository"
	"menudocs/internal/storage"
)

var (
	ErrMissingFields        = errors.New("file_type, name and menu are required")
	ErrFileRequired         = errors.New("file is required for documents")
	ErrUnsupportedMediaType = errors.New("only PDF, JPEG, PNG and plain text files are allowed")
	ErrInvalidFileType      = errors.New("invalid file type")
	ErrInvalidID            = errors.New("invalid document id")
	ErrNotFound             = errors.New("document not found")
	ErrNoBlobStore          = errors.New("document payload is in object storage but no object store is configured")
)

var tracer = otel.Tracer("menudocs/internal/service")

// Upload is a file attached to a create request. Open is only called once
// the request has been validated as a document upload.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// CreateInput carries the fields of a create request.
type CreateInput struct {
	FileType   string
	Name       string
	Menu       string
	FolderName string
	File       *Upload
}

// CreateResult holds whichever entity was created.
type CreateResult struct {
	Document *model.Document
	Folder   *model.Folder
}

// MenuContents is everything filed under one menu.
type MenuContents struct {
	Folders   []model.Folder   `json:"folders"`
	Documents []model.Document `json:"documents"`
}

// DocumentContent is a document's payload and the content type to serve it with.
type DocumentContent struct {
	Document    *model.Document
	Data        []byte
	ContentType string
}

// LibraryService defines the use cases behind the HTTP surface.
type LibraryService interface {
	// MenuContents lists the folders and documents filed under menu.
	// An unknown or empty menu yields empty lists.
	MenuContents(ctx context.Context, menu string) (*MenuContents, error)

	// Create validates the input and inserts exactly one document or folder.
	Create(ctx context.Context, in CreateInput) (*CreateResult, error)

	// Document returns a document's bytes and resolved content type.
	Document(ctx context.Context, id int64) (*DocumentContent, error)

	// Folders returns every folder.
	Folders(ctx context.Context) ([]model.Folder, error)
}

type libraryService struct {
	docs    repository.DocumentRepository
	folders repository.FolderRepository
	store   storage.Storage
	log     *slog.Logger
}

// NewLibraryService wires the service. store may be nil, in which case
// payloads are kept inline in the documents table.
func NewLibraryService(docs repository.DocumentRepository, folders repository.FolderRepository, store storage.Storage, log *slog.Logger) LibraryService {
	if log == nil {
		log = logger.Nop()
	}
	return &libraryService{docs: docs, folders: folders, store: store, log: log}
}

func (s *libraryService) MenuContents(ctx context.Context, menu string) (_ *MenuContents, err error) {
	ctx, span := tracer.Start(ctx, "LibraryService.MenuContents", trace.WithAttributes(attribute.String("menu", menu)))
	defer func() { endSpan(span, err) }()

	folders, err := s.folders.ListByMenu(ctx, menu)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	docs, err := s.docs.ListByMenu(ctx, menu)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if folders == nil {
		folders = []model.Folder{}
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return &MenuContents{Folders: folders, Documents: docs}, nil
}

func (s *libraryService) Create(ctx context.Context, in CreateInput) (_ *CreateResult, err error) {
	in.FileType = strings.TrimSpace(in.FileType)
	in.Name = strings.TrimSpace(in.Name)
	in.Menu = strings.TrimSpace(in.Menu)
	in.FolderName = strings.TrimSpace(in.FolderName)

	ctx, span := tracer.Start(ctx, "LibraryService.Create", trace.WithAttributes(
		attribute.String("file_type", in.FileType),
		attribute.String("menu", in.Menu),
	))
	defer func() { endSpan(span, err) }()

	if in.FileType == "" || in.Name == "" || in.Menu == "" {
		return nil, ErrMissingFields
	}

	switch in.FileType {
	case model.FileTypeDocument:
		doc, err := s.createDocument(ctx, in)
		if err != nil {
			return nil, err
		}
		return &CreateResult{Document: doc}, nil
	case model.FileTypeFolder:
		folder, err := s.folders.Create(ctx, &model.Folder{Name: in.Name, MenuName: in.Menu})
		if err != nil {
			return nil, fmt.Errorf("create folder: %w", err)
		}
		return &CreateResult{Folder: folder}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileType, in.FileType)
	}
}

func (s *libraryService) createDocument(ctx context.Context, in CreateInput) (*model.Document, error) {
	if in.File == nil || in.File.Open == nil {
		return nil, ErrFileRequired
	}
	declared := classifier.Declared(in.File.ContentType, in.File.Filename)
	if !classifier.IsAllowed(declared) {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedMediaType, declared)
	}

	data, err := readUpload(in.File)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		FileType:    model.FileTypeDocument,
		Name:        in.Name,
		MenuName:    in.Menu,
		FolderName:  in.FolderName,
		ContentType: classifier.Verify(declared, data),
		Size:        int64(len(data)),
	}

	if in.FolderName != "" {
		folderID, err := s.resolveFolder(ctx, in.Menu, in.FolderName)
		if err != nil {
			return nil, err
		}
		doc.FolderID = folderID
	}

	if s.store == nil {
		doc.Content = data
		stored, err := s.docs.Create(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("db save failed: %w", err)
		}
		return stored, nil
	}

	key := objectKey(in.File.Filename)
	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        doc.Size,
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"original-filename": in.File.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	doc.StorageKey = objInfo.Key

	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// resolveFolder links a document to a folder of the same menu by name.
// An unknown name is kept as a soft link and only logged.
func (s *libraryService) resolveFolder(ctx context.Context, menu, name string) (*int64, error) {
	folder, err := s.folders.FindByName(ctx, menu, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.WarnContext(ctx, "folder_name_unmatched",
				slog.String("menu", menu),
				slog.String("folder_name", name),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	return &folder.ID, nil
}

func (s *libraryService) Document(ctx context.Context, id int64) (_ *DocumentContent, err error) {
	ctx, span := tracer.Start(ctx, "LibraryService.Document", trace.WithAttributes(attribute.Int64("document_id", id)))
	defer func() {
		if errors.Is(err, ErrNotFound) {
			span.End()
			return
		}
		endSpan(span, err)
	}()

	if id <= 0 {
		return nil, ErrInvalidID
	}

	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	data := doc.Content
	if doc.StorageKey != "" {
		if data, err = s.readObject(ctx, doc.StorageKey); err != nil {
			return nil, err
		}
	}

	return &DocumentContent{
		Document:    doc,
		Data:        data,
		ContentType: classifier.Resolve(doc.ContentType, data),
	}, nil
}

func (s *libraryService) readObject(ctx context.Context, key string) ([]byte, error) {
	if s.store == nil {
		return nil, ErrNoBlobStore
	}
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (s *libraryService) Folders(ctx context.Context) (_ []model.Folder, err error) {
	ctx, span := tracer.Start(ctx, "LibraryService.Folders")
	defer func() { endSpan(span, err) }()

	folders, err := s.folders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	if folders == nil {
		folders = []model.Folder{}
	}
	return folders, nil
}

func readUpload(u *Upload) ([]byte, error) {
	f, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func objectKey(filename string) string {
	return filepath.ToSlash(filepath.Join("documents", uuid.NewString()+strings.ToLower(filepath.Ext(filename))))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// IsClientError reports whether err was caused by the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrFileRequired) ||
		errors.Is(err, ErrUnsupportedMediaType) ||
		errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrInvalidID)
}

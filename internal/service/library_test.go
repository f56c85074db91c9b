package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"menudocs/internal/logger"
	"menudocs/internal/model"
	"menudocs/internal/repository"
	repoMocks "menudocs/internal/repository/mocks"
	"menudocs/internal/storage"
	storeMocks "menudocs/internal/storage/mocks"
)

var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

// upload builds an Upload whose Open counts how often it was called.
func upload(filename, contentType string, data []byte, opened *int) *Upload {
	return &Upload{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			if opened != nil {
				*opened++
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newService(store storage.Storage) (LibraryService, *repoMocks.MockDocumentRepository, *repoMocks.MockFolderRepository) {
	docs := new(repoMocks.MockDocumentRepository)
	folders := new(repoMocks.MockFolderRepository)
	return NewLibraryService(docs, folders, store, logger.Nop()), docs, folders
}

func TestLibraryService_MenuContents(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("ListByMenu", mock.Anything, "HR").Return([]model.Folder{{ID: 1, Name: "Safety", MenuName: "HR"}}, nil)
		docs.On("ListByMenu", mock.Anything, "HR").Return([]model.Document{{ID: 2, Name: "a.pdf", MenuName: "HR"}}, nil)

		res, err := svc.MenuContents(ctx, "HR")

		require.NoError(t, err)
		assert.Len(t, res.Folders, 1)
		assert.Len(t, res.Documents, 1)
		folders.AssertExpectations(t)
		docs.AssertExpectations(t)
	})

	t.Run("unknown menu yields empty lists", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("ListByMenu", mock.Anything, "").Return(nil, nil)
		docs.On("ListByMenu", mock.Anything, "").Return(nil, nil)

		res, err := svc.MenuContents(ctx, "")

		require.NoError(t, err)
		assert.NotNil(t, res.Folders)
		assert.NotNil(t, res.Documents)
		assert.Empty(t, res.Folders)
		assert.Empty(t, res.Documents)
	})

	t.Run("folder query error", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("ListByMenu", mock.Anything, "HR").Return(nil, errors.New("db down"))

		res, err := svc.MenuContents(ctx, "HR")

		assert.ErrorContains(t, err, "list folders: db down")
		assert.Nil(t, res)
		docs.AssertNotCalled(t, "ListByMenu", mock.Anything, mock.Anything)
	})

	t.Run("document query error", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("ListByMenu", mock.Anything, "HR").Return([]model.Folder{}, nil)
		docs.On("ListByMenu", mock.Anything, "HR").Return(nil, errors.New("timeout"))

		_, err := svc.MenuContents(ctx, "HR")

		assert.ErrorContains(t, err, "list documents: timeout")
	})
}

func TestLibraryService_Create_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{
			name:    "missing file_type",
			in:      CreateInput{Name: "a", Menu: "HR"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "missing name",
			in:      CreateInput{FileType: "Folder", Menu: "HR"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "blank menu",
			in:      CreateInput{FileType: "Folder", Name: "Safety", Menu: "   "},
			wantErr: ErrMissingFields,
		},
		{
			name:    "missing fields win over invalid type",
			in:      CreateInput{FileType: "Spreadsheet", Name: "a"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "document without file",
			in:      CreateInput{FileType: "Document", Name: "a", Menu: "HR"},
			wantErr: ErrFileRequired,
		},
		{
			name:    "disallowed declared type",
			in:      CreateInput{FileType: "Document", Name: "a", Menu: "HR", File: upload("a.gif", "image/gif", []byte("GIF89a"), nil)},
			wantErr: ErrUnsupportedMediaType,
		},
		{
			name:    "generic type with unknown extension",
			in:      CreateInput{FileType: "Document", Name: "a", Menu: "HR", File: upload("a.exe", "application/octet-stream", []byte("MZ"), nil)},
			wantErr: ErrUnsupportedMediaType,
		},
		{
			name:    "invalid file_type",
			in:      CreateInput{FileType: "Spreadsheet", Name: "a", Menu: "HR"},
			wantErr: ErrInvalidFileType,
		},
		{
			name:    "file_type is case sensitive",
			in:      CreateInput{FileType: "folder", Name: "a", Menu: "HR"},
			wantErr: ErrInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, docs, folders := newService(nil)

			res, err := svc.Create(ctx, tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsClientError(err))
			assert.Nil(t, res)
			docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			folders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestLibraryService_Create_InvalidTypeNamesValue(t *testing.T) {
	svc, _, _ := newService(nil)

	_, err := svc.Create(context.Background(), CreateInput{FileType: "Spreadsheet", Name: "a", Menu: "HR"})

	assert.ErrorContains(t, err, `"Spreadsheet"`)
}

func TestLibraryService_Create_UnsupportedDoesNotReadFile(t *testing.T) {
	svc, _, _ := newService(nil)
	opened := 0

	_, err := svc.Create(context.Background(), CreateInput{
		FileType: "Document", Name: "a", Menu: "HR",
		File: upload("a.zip", "application/zip", []byte("PK\x03\x04"), &opened),
	})

	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	assert.Zero(t, opened)
}

func TestLibraryService_Create_Folder(t *testing.T) {
	svc, docs, folders := newService(nil)
	opened := 0

	folders.On("Create", mock.Anything, &model.Folder{Name: "Safety", MenuName: "HR"}).
		Return(&model.Folder{ID: 5, Name: "Safety", MenuName: "HR"}, nil).Once()

	res, err := svc.Create(context.Background(), CreateInput{
		FileType: "Folder",
		Name:     " Safety ",
		Menu:     "HR",
		// attachments are ignored for folders
		File: upload("x.gif", "image/gif", []byte("GIF89a"), &opened),
	})

	require.NoError(t, err)
	require.NotNil(t, res.Folder)
	assert.Nil(t, res.Document)
	assert.Equal(t, int64(5), res.Folder.ID)
	assert.Zero(t, opened)
	folders.AssertExpectations(t)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLibraryService_Create_FolderError(t *testing.T) {
	svc, _, folders := newService(nil)
	folders.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed"))

	_, err := svc.Create(context.Background(), CreateInput{FileType: "Folder", Name: "Safety", Menu: "HR"})

	assert.ErrorContains(t, err, "create folder: insert failed")
	assert.False(t, IsClientError(err))
}

func TestLibraryService_Create_DocumentInline(t *testing.T) {
	ctx := context.Background()

	t.Run("links folder and stores verified type", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("FindByName", mock.Anything, "HR", "Safety").Return(&model.Folder{ID: 9, Name: "Safety", MenuName: "HR"}, nil)
		docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
			return d.FileType == "Document" &&
				d.Name == "handbook" &&
				d.MenuName == "HR" &&
				d.FolderName == "Safety" &&
				d.FolderID != nil && *d.FolderID == 9 &&
				d.ContentType == "application/pdf" &&
				d.Size == int64(len(pdfBytes)) &&
				bytes.Equal(d.Content, pdfBytes) &&
				d.StorageKey == ""
		})).Return(func(_ context.Context, d *model.Document) *model.Document {
			out := *d
			out.ID = 21
			return &out
		}, nil).Once()

		// declared as octet-stream, the .pdf extension supplies the type
		res, err := svc.Create(ctx, CreateInput{
			FileType:   "Document",
			Name:       "handbook",
			Menu:       "HR",
			FolderName: "Safety",
			File:       upload("handbook.pdf", "application/octet-stream", pdfBytes, nil),
		})

		require.NoError(t, err)
		require.NotNil(t, res.Document)
		assert.Equal(t, int64(21), res.Document.ID)
		docs.AssertExpectations(t)
	})

	t.Run("unmatched folder name is kept as a soft link", func(t *testing.T) {
		var buf bytes.Buffer
		docs := new(repoMocks.MockDocumentRepository)
		folders := new(repoMocks.MockFolderRepository)
		svc := NewLibraryService(docs, folders, nil, logger.New(&buf, logger.Options{}))

		folders.On("FindByName", mock.Anything, "HR", "Archive").Return(nil, sql.ErrNoRows)
		docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
			return d.FolderName == "Archive" && d.FolderID == nil && d.ContentType == "text/plain"
		})).Return(&model.Document{ID: 3}, nil).Once()

		res, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "notes", Menu: "HR", FolderName: "Archive",
			File: upload("notes.txt", "text/plain; charset=utf-8", []byte("plain words"), nil),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Document.ID)
		assert.Contains(t, buf.String(), "folder_name_unmatched")
	})

	t.Run("folder lookup failure aborts", func(t *testing.T) {
		svc, docs, folders := newService(nil)
		folders.On("FindByName", mock.Anything, "HR", "Safety").Return(nil, errors.New("conn reset"))

		_, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "n", Menu: "HR", FolderName: "Safety",
			File: upload("n.txt", "text/plain", []byte("x"), nil),
		})

		assert.ErrorContains(t, err, "resolve folder: conn reset")
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("insert failure", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

		_, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "n", Menu: "HR",
			File: upload("n.png", "image/png", []byte("\x89PNG\r\n\x1a\n"), nil),
		})

		assert.ErrorContains(t, err, "db save failed: disk full")
	})

	t.Run("open failure", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		u := &Upload{Filename: "n.txt", ContentType: "text/plain", Open: func() (io.ReadCloser, error) {
			return nil, errors.New("tmp file gone")
		}}

		_, err := svc.Create(ctx, CreateInput{FileType: "Document", Name: "n", Menu: "HR", File: u})

		assert.ErrorContains(t, err, "open upload: tmp file gone")
		assert.False(t, IsClientError(err))
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLibraryService_Create_DocumentObjectStore(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)

		mStore.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
		}), mock.Anything, storage.PutObjectOptions{
			Size:        int64(len(pdfBytes)),
			ContentType: "application/pdf",
			Metadata:    map[string]string{"original-filename": "Report.PDF"},
		}).Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
		}, nil).Once()

		docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
			return strings.HasPrefix(d.StorageKey, "documents/") && d.Content == nil
		})).Return(&model.Document{ID: 30}, nil).Once()

		res, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "report", Menu: "Finance",
			File: upload("Report.PDF", "application/pdf", pdfBytes, nil),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(30), res.Document.ID)
		mStore.AssertExpectations(t)
		docs.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("storage fail"))

		_, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "r", Menu: "F",
			File: upload("r.pdf", "application/pdf", pdfBytes, nil),
		})

		assert.EqualError(t, err, "upload to storage: storage fail")
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository error with successful rollback", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)
		var putKey string
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(_ context.Context, key string, _ io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
				putKey = key
				return storage.ObjectInfo{Key: key}
			}, nil)
		docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "r", Menu: "F",
			File: upload("r.pdf", "application/pdf", pdfBytes, nil),
		})

		assert.EqualError(t, err, "db save failed: db fail")
		mStore.AssertCalled(t, "Delete", mock.Anything, putKey)
	})

	t.Run("repository error with failed rollback", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(_ context.Context, key string, _ io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil)
		docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete fail"))

		_, err := svc.Create(ctx, CreateInput{
			FileType: "Document", Name: "r", Menu: "F",
			File: upload("r.pdf", "application/pdf", pdfBytes, nil),
		})

		assert.ErrorContains(t, err, "rollback delete failed: delete fail")
	})
}

func TestLibraryService_Document(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid id", func(t *testing.T) {
		svc, docs, _ := newService(nil)

		_, err := svc.Document(ctx, 0)

		assert.ErrorIs(t, err, ErrInvalidID)
		docs.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(404)).Return(nil, sql.ErrNoRows)

		_, err := svc.Document(ctx, 404)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inline bytes round trip with stored type", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(1)).
			Return(&model.Document{ID: 1, Name: "h.pdf", ContentType: "application/pdf", Content: pdfBytes}, nil)

		res, err := svc.Document(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, pdfBytes, res.Data)
		assert.Equal(t, "application/pdf", res.ContentType)
	})

	t.Run("legacy row without stored type is sniffed", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(2)).
			Return(&model.Document{ID: 2, Content: []byte("\x89PNG\r\n\x1a\n....")}, nil)

		res, err := svc.Document(ctx, 2)

		require.NoError(t, err)
		assert.Equal(t, "image/png", res.ContentType)
	})

	t.Run("payload signature beats stored label", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(6)).
			Return(&model.Document{ID: 6, ContentType: "image/png", Content: []byte("GIF89a\x01\x00\x01\x00")}, nil)

		res, err := svc.Document(ctx, 6)

		require.NoError(t, err)
		assert.Equal(t, "image/gif", res.ContentType)
	})

	t.Run("plain text falls back to text content type", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(3)).
			Return(&model.Document{ID: 3, Content: []byte{0x01, 0x02}}, nil)

		res, err := svc.Document(ctx, 3)

		require.NoError(t, err)
		assert.Equal(t, "text/plain; charset=utf-8", res.ContentType)
	})

	t.Run("malformed stored content", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(4)).Return(nil, repository.ErrMalformedContent)

		_, err := svc.Document(ctx, 4)

		assert.ErrorIs(t, err, repository.ErrMalformedContent)
		assert.False(t, IsClientError(err))
	})

	t.Run("payload in object storage", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)
		docs.On("FindByID", mock.Anything, int64(5)).
			Return(&model.Document{ID: 5, ContentType: "application/pdf", StorageKey: "documents/x.pdf"}, nil)
		mStore.On("Get", mock.Anything, "documents/x.pdf").
			Return(io.NopCloser(bytes.NewReader(pdfBytes)), storage.ObjectInfo{Key: "documents/x.pdf"}, nil)

		res, err := svc.Document(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, pdfBytes, res.Data)
		mStore.AssertExpectations(t)
	})

	t.Run("object storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc, docs, _ := newService(mStore)
		docs.On("FindByID", mock.Anything, int64(6)).
			Return(&model.Document{ID: 6, StorageKey: "documents/y.pdf"}, nil)
		mStore.On("Get", mock.Anything, "documents/y.pdf").
			Return(nil, storage.ObjectInfo{}, errors.New("no such key"))

		_, err := svc.Document(ctx, 6)

		assert.ErrorContains(t, err, "get object: no such key")
	})

	t.Run("object key without a store", func(t *testing.T) {
		svc, docs, _ := newService(nil)
		docs.On("FindByID", mock.Anything, int64(7)).
			Return(&model.Document{ID: 7, StorageKey: "documents/z.pdf"}, nil)

		_, err := svc.Document(ctx, 7)

		assert.ErrorIs(t, err, ErrNoBlobStore)
	})
}

func TestLibraryService_Folders(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, _, folders := newService(nil)
		folders.On("List", mock.Anything).Return([]model.Folder{{ID: 1}, {ID: 2}}, nil)

		res, err := svc.Folders(ctx)

		require.NoError(t, err)
		assert.Len(t, res, 2)
	})

	t.Run("nil becomes empty", func(t *testing.T) {
		svc, _, folders := newService(nil)
		folders.On("List", mock.Anything).Return(nil, nil)

		res, err := svc.Folders(ctx)

		require.NoError(t, err)
		assert.NotNil(t, res)
	})

	t.Run("error", func(t *testing.T) {
		svc, _, folders := newService(nil)
		folders.On("List", mock.Anything).Return(nil, errors.New("db down"))

		_, err := svc.Folders(ctx)

		assert.ErrorContains(t, err, "list folders: db down")
	})
}

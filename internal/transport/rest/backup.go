package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/transport"
)

// BackupStore is the slice of the persistence adapter the backup endpoints use.
type BackupStore interface {
	ExportToFile(ctx context.Context) ([]byte, error)
	ImportFromFile(ctx context.Context, b []byte) error
}

type BackupHandler struct {
	*transport.BaseHandler
	store    BackupStore
	maxBytes int64
	now      func() time.Time
}

func NewBackupHandler(base *transport.BaseHandler, store BackupStore, maxBytes int64) *BackupHandler {
	return &BackupHandler{BaseHandler: base, store: store, maxBytes: maxBytes, now: time.Now}
}

// Download streams the whole database as a SQLite file.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.ExportToFile(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	name := fmt.Sprintf("herasat-backup-%s.sqlite", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", persistence.SnapshotContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		h.Logger.Warn("backup download interrupted", "error", err)
	}
}

// Restore replaces the database with the uploaded SQLite file.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		h.WriteError(w, http.StatusRequestEntityTooLarge, "backup too large")
		return
	}
	if len(b) == 0 {
		h.WriteAppError(w, internal.NewValidationError("backup file is empty", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.store.ImportFromFile(r.Context(), b); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.Logger.Info("database restored from upload", "bytes", len(b))
	h.WriteJSON(w, http.StatusOK, map[string]any{"status": "restored", "bytes": len(b)})
}

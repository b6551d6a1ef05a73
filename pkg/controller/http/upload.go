package http

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/uploader"
	"github.com/secmon-lab/csvgate/pkg/utils/apperr"
)

// Messages returned by the upload endpoint
const (
	MessageMissingFiles = "Please upload all three CSV files."
	MessageTooLarge     = "Uploaded files are too large."
	MessageImportFailed = "Failed to import CSV files."
)

// maxMemory is the part of a multipart body kept in memory; the rest spills
// to temporary files
const maxMemory = 8 << 20

// uploadParts maps each import part to the form field names it is accepted
// under. Scripted clients send the part name, plain form posts send the
// input name.
var uploadParts = []struct {
	part   string
	fields []string
}{
	{model.PartUsers, []string{model.PartUsers, uploader.InputUsers}},
	{model.PartOrders, []string{model.PartOrders, uploader.InputOrders}},
	{model.PartProducts, []string{model.PartProducts, uploader.InputProducts}},
}

type uploadHandler struct {
	importUC interfaces.Import
}

func newUploadHandler(importUC interfaces.Import) *uploadHandler {
	return &uploadHandler{importUC: importUC}
}

func (h *uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Upload exceeds size limit", "limit", tooLarge.Limit)
			writeError(ctx, w, MessageTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn("Failed to parse multipart upload", "error", err)
		writeError(ctx, w, MessageMissingFiles, http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	opened := make(map[string]multipart.File, len(uploadParts))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, p := range uploadParts {
		header := findFile(r.MultipartForm, p.fields)
		if header == nil {
			logger.Info("Upload is missing a file", "part", p.part)
			writeError(ctx, w, MessageMissingFiles, http.StatusBadRequest)
			return
		}
		f, err := header.Open()
		if err != nil {
			apperr.Handle(ctx, goerr.Wrap(err, "failed to open uploaded file", goerr.V("part", p.part)))
			writeError(ctx, w, MessageImportFailed, http.StatusInternalServerError)
			return
		}
		opened[p.part] = f
		logger.Debug("Received upload part", "part", p.part, "filename", header.Filename, "size", header.Size)
	}

	result, err := h.importUC.Run(ctx, model.ImportFiles{
		Users:    opened[model.PartUsers],
		Products: opened[model.PartProducts],
		Orders:   opened[model.PartOrders],
	})
	if err != nil {
		if goerr.HasTag(err, model.ErrTagInvalidCSV) {
			logger.Warn("Uploaded file is not valid CSV", "error", err)
			writeError(ctx, w, "Invalid CSV file: "+rootMessage(err), http.StatusBadRequest)
			return
		}
		apperr.Handle(ctx, err)
		writeError(ctx, w, MessageImportFailed, http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, http.StatusOK, model.UploadResponse{
		Message: model.ImportCompletedMessage,
		Details: result.Report,
		Error:   result.Error,
	})
}

func findFile(form *multipart.Form, fields []string) *multipart.FileHeader {
	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

// rootMessage returns the message of the innermost error
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}


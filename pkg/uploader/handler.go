package uploader

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
)

const (
	// UploadPath is the upload endpoint relative to the server base URL
	UploadPath = "/upload/upload-csv/"
	// HeaderCSRFToken carries the anti-forgery token
	HeaderCSRFToken = "X-CSRFToken"
	// MissingFilesMessage is alerted when a required file is not selected
	MissingFilesMessage = "Please upload all the required files."
)

// ErrTagMissingFile marks a submission aborted because a file was not selected
var ErrTagMissingFile = goerr.NewTag("missing_file")

// Handler submits the upload form. It holds no state between submissions;
// each call to Submit is an independent request cycle.
type Handler struct {
	endpoint string
	form     interfaces.Form
	loader   interfaces.Loader
	notifier interfaces.Notifier
	alerter  interfaces.Alerter
	client   *http.Client
}

// Option configures a Handler
type Option func(*Handler)

// WithHTTPClient sets the HTTP client used for the upload. The default client
// has no timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) {
		h.client = client
	}
}

// New creates a handler posting to baseURL + UploadPath
func New(
	baseURL string,
	form interfaces.Form,
	loader interfaces.Loader,
	notifier interfaces.Notifier,
	alerter interfaces.Alerter,
	opts ...Option,
) *Handler {
	h := &Handler{
		endpoint: strings.TrimRight(baseURL, "/") + UploadPath,
		form:     form,
		loader:   loader,
		notifier: notifier,
		alerter:  alerter,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Endpoint returns the URL uploads are posted to
func (h *Handler) Endpoint() string {
	return h.endpoint
}

// Submit collects the three files, posts them and notifies the outcome.
// A missing file is alerted and returned as an error tagged
// ErrTagMissingFile without any network call. Every other outcome is
// delivered through the notifier and returned as the notification.
func (h *Handler) Submit(ctx context.Context) (model.Notification, error) {
	logger := ctxlog.From(ctx)

	req, err := h.collect()
	if err != nil {
		logger.Debug("Upload aborted before sending", "error", err)
		h.alerter.Alert(ctx, MissingFilesMessage)
		return model.Notification{}, err
	}

	logger.Info("Uploading CSV files",
		"endpoint", h.endpoint,
		"users", req.Users.FileName,
		"orders", req.Orders.FileName,
		"products", req.Products.FileName,
	)

	h.loader.Show()
	result, err := h.send(ctx, req)
	h.loader.Hide()

	var n model.Notification
	if err != nil {
		logger.Warn("Upload request failed", "error", err)
		n = model.TransportFailure(err)
	} else {
		n = result.Classify()
		logger.Info("Upload finished",
			"status", result.StatusCode,
			"outcome", n.Outcome,
		)
	}

	h.notifier.Notify(ctx, n)
	return n, nil
}

func (h *Handler) collect() (*model.UploadRequest, error) {
	req := &model.UploadRequest{
		Users:     h.form.File(InputUsers),
		Orders:    h.form.File(InputOrders),
		Products:  h.form.File(InputProducts),
		CSRFToken: h.form.Value(InputCSRFToken),
	}

	var missing []string
	for _, p := range []struct {
		input string
		file  *model.Attachment
	}{
		{InputUsers, req.Users},
		{InputOrders, req.Orders},
		{InputProducts, req.Products},
	} {
		if p.file == nil {
			missing = append(missing, p.input)
		}
	}
	if len(missing) > 0 {
		return nil, goerr.New("required file is not selected",
			goerr.V("missing", missing),
			goerr.T(ErrTagMissingFile))
	}

	return req, nil
}

// send posts the request and decodes the JSON body. Errors are returned
// unwrapped because their text is shown to the user.
func (h *Handler) send(ctx context.Context, req *model.UploadRequest) (*model.UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderCSRFToken, req.CSRFToken)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result model.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	result.StatusCode = resp.StatusCode

	return &result, nil
}

func writeParts(mw *multipart.Writer, req *model.UploadRequest) error {
	for _, p := range req.Parts() {
		if err := writePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, p model.Part) error {
	src, err := p.Attachment.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := mw.CreateFormFile(p.Name, p.Attachment.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}

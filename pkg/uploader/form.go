package uploader

import (
	"context"
	"io"
	"net/http"
	"slices"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"golang.org/x/net/html"
)

// Names of the upload form elements
const (
	FormID         = "uploadForm"
	LoaderID       = "loaderContainer"
	InputUsers     = "usersfile"
	InputOrders    = "orderfile"
	InputProducts  = "productfile"
	InputCSRFToken = "csrfmiddlewaretoken"
)

// FileInputs lists the file inputs the form must provide
var FileInputs = []string{InputUsers, InputOrders, InputProducts}

// StaticForm is a Form whose inputs are set programmatically
type StaticForm struct {
	files  map[string]*model.Attachment
	values map[string]string
}

// NewStaticForm creates an empty form
func NewStaticForm() *StaticForm {
	return &StaticForm{
		files:  make(map[string]*model.Attachment),
		values: make(map[string]string),
	}
}

// SetFile selects a file on disk for the input. An empty path leaves the
// input unselected.
func (f *StaticForm) SetFile(input, path string) *StaticForm {
	if path == "" {
		delete(f.files, input)
		return f
	}
	f.files[input] = model.NewFileAttachment(path)
	return f
}

// SetAttachment selects an attachment for the input
func (f *StaticForm) SetAttachment(input string, a *model.Attachment) *StaticForm {
	if a == nil {
		delete(f.files, input)
		return f
	}
	f.files[input] = a
	return f
}

// SetValue sets the value of a non-file input
func (f *StaticForm) SetValue(input, value string) *StaticForm {
	f.values[input] = value
	return f
}

// File implements interfaces.Form
func (f *StaticForm) File(input string) *model.Attachment {
	return f.files[input]
}

// Value implements interfaces.Form
func (f *StaticForm) Value(input string) string {
	return f.values[input]
}

// FormPage is what the upload page declares inside its upload form
type FormPage struct {
	FileInputs []string
	Hidden     map[string]string
}

// ParseFormPage extracts the upload form inputs from an HTML page
func ParseFormPage(r io.Reader) (*FormPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse upload page")
	}

	form := findElementByID(doc, "form", FormID)
	if form == nil {
		return nil, goerr.New("upload form not found in page", goerr.V("id", FormID))
	}

	page := &FormPage{Hidden: make(map[string]string)}
	walk(form, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "input" {
			return
		}
		name := attr(n, "name")
		if name == "" {
			return
		}
		switch attr(n, "type") {
		case "file":
			page.FileInputs = append(page.FileInputs, name)
		case "hidden":
			page.Hidden[name] = attr(n, "value")
		}
	})

	return page, nil
}

// Validate checks that the page provides every required input
func (p *FormPage) Validate() error {
	for _, input := range FileInputs {
		if !slices.Contains(p.FileInputs, input) {
			return goerr.New("upload form lacks file input", goerr.V("input", input))
		}
	}
	if _, ok := p.Hidden[InputCSRFToken]; !ok {
		return goerr.New("upload form lacks anti-forgery token", goerr.V("input", InputCSRFToken))
	}
	return nil
}

// LoadPage fetches the upload page and copies its hidden inputs into form.
// Values already set on form are kept. The client should carry a cookie jar
// so that cookies set by the page are sent with the upload.
func LoadPage(ctx context.Context, client *http.Client, pageURL string, form *StaticForm) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create page request", goerr.V("url", pageURL))
	}

	resp, err := client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch upload page", goerr.V("url", pageURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return goerr.New("unexpected status for upload page",
			goerr.V("url", pageURL),
			goerr.V("status", resp.StatusCode))
	}

	page, err := ParseFormPage(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "invalid upload page", goerr.V("url", pageURL))
	}
	if err := page.Validate(); err != nil {
		return goerr.Wrap(err, "invalid upload page", goerr.V("url", pageURL))
	}

	for name, value := range page.Hidden {
		if form.Value(name) == "" {
			form.SetValue(name, value)
		}
	}

	ctxlog.From(ctx).Debug("Loaded upload page",
		"url", pageURL,
		"hidden_inputs", len(page.Hidden),
	)
	return nil
}

func findElementByID(n *html.Node, tag, id string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && c.Data == tag && attr(c, "id") == id {
			found = c
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

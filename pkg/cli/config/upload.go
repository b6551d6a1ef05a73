package config

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/uploader"
	"github.com/urfave/cli/v3"
)

// DefaultURL is the server base URL used when none is configured
const DefaultURL = "http://localhost:8080"

// Upload holds the upload command configuration
type Upload struct {
	URL       string
	Users     string
	Orders    string
	Products  string
	CSRFToken string
	FetchPage bool
	Profile   string
}

// Flags returns CLI flags for Upload configuration
func (u *Upload) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Base URL of the csvgate server",
			Category:    "Upload",
			Value:       DefaultURL,
			Sources:     cli.EnvVars("CSVGATE_URL"),
			Destination: &u.URL,
		},
		&cli.StringFlag{
			Name:        "users",
			Usage:       "Path to the users CSV file",
			Category:    "Upload",
			Destination: &u.Users,
		},
		&cli.StringFlag{
			Name:        "orders",
			Usage:       "Path to the orders CSV file",
			Category:    "Upload",
			Destination: &u.Orders,
		},
		&cli.StringFlag{
			Name:        "products",
			Usage:       "Path to the products CSV file",
			Category:    "Upload",
			Destination: &u.Products,
		},
		&cli.StringFlag{
			Name:        "csrf-token",
			Usage:       "Anti-forgery token. Taken from the upload page when not set",
			Category:    "Upload",
			Sources:     cli.EnvVars("CSVGATE_CSRF_TOKEN"),
			Destination: &u.CSRFToken,
		},
		&cli.BoolFlag{
			Name:        "fetch-page",
			Usage:       "Load the upload page first to pick up the token and cookies",
			Category:    "Upload",
			Value:       true,
			Destination: &u.FetchPage,
		},
		&cli.StringFlag{
			Name:        "profile",
			Aliases:     []string{"p"},
			Usage:       "YAML profile with url, files and notification settings",
			Category:    "Upload",
			Sources:     cli.EnvVars("CSVGATE_PROFILE"),
			Destination: &u.Profile,
		},
	}
}

// ApplyProfile fills settings from the profile file. Values given by flag or
// environment variable are kept; isSet reports those.
func (u *Upload) ApplyProfile(n *Notify, isSet func(name string) bool) error {
	if u.Profile == "" {
		return nil
	}

	profile, err := LoadProfileFromFile(u.Profile)
	if err != nil {
		return err
	}

	apply := func(name string, dst *string, v string) {
		if v != "" && !isSet(name) {
			*dst = v
		}
	}
	apply("url", &u.URL, profile.URL)
	apply("users", &u.Users, profile.Users)
	apply("orders", &u.Orders, profile.Orders)
	apply("products", &u.Products, profile.Products)
	apply("notify", &n.Mode, profile.Notify.String())
	if profile.DismissAfter > 0 && !isSet("dismiss-after") {
		n.DismissAfter = profile.DismissAfter
	}
	return nil
}

// Form builds the upload form from the configured files and token. When
// page fetching is enabled the upload page is loaded through client first.
func (u *Upload) Form(ctx context.Context, client *http.Client) (*uploader.StaticForm, error) {
	form := uploader.NewStaticForm().
		SetFile(uploader.InputUsers, u.Users).
		SetFile(uploader.InputOrders, u.Orders).
		SetFile(uploader.InputProducts, u.Products)
	if u.CSRFToken != "" {
		form.SetValue(uploader.InputCSRFToken, u.CSRFToken)
	}

	if !u.FetchPage {
		if u.CSRFToken == "" {
			ctxlog.From(ctx).Warn("No anti-forgery token; the server will reject the upload")
		}
		return form, nil
	}

	if err := uploader.LoadPage(ctx, client, u.PageURL(), form); err != nil {
		return nil, goerr.Wrap(err, "failed to load upload page")
	}
	return form, nil
}

// PageURL returns the URL of the upload page
func (u *Upload) PageURL() string {
	return strings.TrimRight(u.URL, "/") + "/"
}

// HTTPClient returns a client that keeps cookies between the page fetch and
// the upload. It has no timeout.
func (u *Upload) HTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cookie jar")
	}
	return &http.Client{Jar: jar}, nil
}

// LogValue returns structured log value
func (u Upload) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", u.URL),
		slog.String("users", u.Users),
		slog.String("orders", u.Orders),
		slog.String("products", u.Products),
		slog.Bool("has_csrf_token", u.CSRFToken != ""),
		slog.Bool("fetch_page", u.FetchPage),
		slog.String("profile", u.Profile),
	)
}

package cli_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/csvgate/pkg/cli"
	controller "github.com/secmon-lab/csvgate/pkg/controller/http"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"github.com/secmon-lab/csvgate/pkg/repository"
	"github.com/secmon-lab/csvgate/pkg/service/csrf"
	"github.com/secmon-lab/csvgate/pkg/usecase"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600)).Required()
	return path
}

func startServer(t *testing.T, repo *repository.Memory) *httptest.Server {
	t.Helper()
	tokens, err := csrf.New([]byte("cli-test"))
	gt.NoError(t, err).Required()
	server, err := controller.NewServer(context.Background(), ":0", usecase.NewImport(repo), tokens)
	gt.NoError(t, err).Required()
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestUploadCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	users := writeCSV(t, dir, "users.csv", "id,name,email\nu1,Alice,alice@example.com\n")
	products := writeCSV(t, dir, "products.csv", "id,name,price\np1,Pen,1.5\n")
	orders := writeCSV(t, dir, "orders.csv", "id,user_id,product_id,quantity\no1,u1,p1,2\n")

	t.Run("uploads files with token from page", func(t *testing.T) {
		repo := repository.NewMemory()
		ts := startServer(t, repo)

		err := cli.Run(ctx, []string{
			"csvgate", "--log-format", "json",
			"upload",
			"--url", ts.URL,
			"--users", users,
			"--orders", orders,
			"--products", products,
			"--dismiss-after", "10ms",
		})
		gt.NoError(t, err)

		order, err := repo.GetOrder(ctx, types.OrderID("o1"))
		gt.NoError(t, err).Required()
		gt.Equal(t, order.ProductID, types.ProductID("p1"))
	})

	t.Run("profile supplies settings", func(t *testing.T) {
		repo := repository.NewMemory()
		ts := startServer(t, repo)

		profile := writeCSV(t, dir, "profile.yaml",
			"url: "+ts.URL+"\nusers: users.csv\norders: orders.csv\nproducts: products.csv\ndismiss_after: 10ms\n")

		err := cli.Run(ctx, []string{"csvgate", "--log-format", "json", "upload", "--profile", profile})
		gt.NoError(t, err)

		_, err = repo.GetUser(ctx, types.UserID("u1"))
		gt.NoError(t, err)
	})

	t.Run("missing token fails", func(t *testing.T) {
		ts := startServer(t, repository.NewMemory())

		err := cli.Run(ctx, []string{
			"csvgate", "--log-format", "json",
			"upload",
			"--url", ts.URL,
			"--users", users,
			"--orders", orders,
			"--products", products,
			"--fetch-page=false",
			"--dismiss-after", "10ms",
		})
		gt.Error(t, err)
	})

	t.Run("invalid notify mode fails", func(t *testing.T) {
		err := cli.Run(ctx, []string{"csvgate", "upload", "--notify", "toast"})
		gt.Error(t, err)
	})
}

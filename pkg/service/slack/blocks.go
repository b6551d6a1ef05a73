package slack

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxListedErrors caps the row errors quoted in one message
const maxListedErrors = 5

func statusEmoji(result *model.ImportResult) string {
	if result.Error != "" {
		return "🚨"
	}
	if rowErrorCount(result.Report) > 0 {
		return "⚠️"
	}
	return "✅"
}

func rowErrorCount(report *model.ImportReport) int {
	if report == nil {
		return 0
	}
	return len(report.UsersErrors) + len(report.ProductsErrors) + len(report.OrdersErrors)
}

// buildImportBlocks renders an import result as Block Kit blocks
func buildImportBlocks(result *model.ImportResult) []slack.Block {
	title := "CSV import completed"
	if result.Error != "" {
		title = "CSV import failed"
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("%s %s", statusEmoji(result), title), true, false),
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Users:*\n%d", result.Users), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Products:*\n%d", result.Products), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Orders:*\n%d", result.Orders), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Row errors:*\n%d", rowErrorCount(result.Report)), false, false),
		}, nil),
	}

	if result.Error != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Error:* `%s`", result.Error), false, false),
			nil, nil,
		))
	}

	if listed := listErrors(result.Report); listed != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, listed, false, false),
			nil, nil,
		))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Import `%s` took %s", result.ID, result.FinishedAt.Sub(result.StartedAt).Round(1e6)), false, false),
	))

	return blocks
}

func listErrors(report *model.ImportReport) string {
	if report == nil {
		return ""
	}

	var lines []string
	for _, group := range [][]string{report.UsersErrors, report.ProductsErrors, report.OrdersErrors} {
		for _, msg := range group {
			if len(lines) == maxListedErrors {
				break
			}
			lines = append(lines, "• "+msg)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	if rest := rowErrorCount(report) - len(lines); rest > 0 {
		lines = append(lines, fmt.Sprintf("_and %d more_", rest))
	}
	return strings.Join(lines, "\n")
}

package slack

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Reporter posts a summary of each import to a Slack channel
type Reporter struct {
	client    interfaces.SlackClient
	channelID string
}

var _ interfaces.ImportReporter = (*Reporter)(nil)

// NewReporter creates a Reporter posting to channelID
func NewReporter(client interfaces.SlackClient, channelID string) *Reporter {
	return &Reporter{
		client:    client,
		channelID: channelID,
	}
}

// Report posts the import summary. The plain text is the notification fallback.
func (r *Reporter) Report(ctx context.Context, result *model.ImportResult) error {
	if result == nil {
		return goerr.New("import result is nil")
	}

	_, ts, err := r.client.PostMessageContext(ctx, r.channelID,
		slack.MsgOptionText(result.Summary(), false),
		slack.MsgOptionBlocks(buildImportBlocks(result)...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to report import",
			goerr.V("import_id", result.ID),
			goerr.V("channel", r.channelID))
	}

	ctxlog.From(ctx).Debug("Import reported to Slack",
		"import_id", result.ID,
		"channel", r.channelID,
		"ts", ts,
	)
	return nil
}

package interfaces

import (
	"context"

	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/slack-go/slack"
)

// SlackClient is the subset of the Slack API used to report imports
type SlackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// ImportReporter publishes the result of an import
type ImportReporter interface {
	Report(ctx context.Context, result *model.ImportResult) error
}

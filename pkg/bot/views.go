package bot

import (
	"github.com/tzrikka/kenall/pkg/postalcode"
	"github.com/tzrikka/kenall/pkg/slack"
)

const (
	// CommandName is the slash command that the bot handles.
	CommandName = "/kenall"
	// CallbackID identifies both the global shortcut and the bot's modal views.
	CallbackID = "kenall-search"

	// BlockID and ActionID locate the postal code input in the search form.
	BlockID  = "postal_code"
	ActionID = "input"

	// ResultText is the notification text of slash command results.
	ResultText = "ケンオールでの検索結果です"
	// FailureMessage is shown to users when a lookup fails unexpectedly.
	FailureMessage = "ケンオールでの検索に失敗しました。しばらくしてからもう一度お試しください"

	viewTitle = "ケンオール検索"
)

// SearchForm is the modal view with an empty postal code input.
func SearchForm() slack.View {
	return slack.View{
		Type:       "modal",
		CallbackID: CallbackID,
		Title:      slack.PlainText(viewTitle),
		Submit:     slack.PlainText("検索"),
		Close:      slack.PlainText("キャンセル"),
		Blocks: []slack.Block{
			slack.NewInput(BlockID, ActionID, "郵便番号", postalcode.RequiredMessage),
		},
	}
}

// SearchingView is shown while a lookup is in progress.
func SearchingView(code postalcode.Code) slack.View {
	return slack.View{
		Type:       "modal",
		CallbackID: CallbackID,
		Title:      slack.PlainText(viewTitle),
		Close:      slack.PlainText("閉じる"),
		Blocks:     []slack.Block{slack.NewSection(searchingText(code))},
	}
}

// ResultView displays formatted lookup results. It has no input block,
// so submitting it ("再検索") arrives without state values, and
// [Coordinator.HandleViewSubmission] responds with a fresh [SearchForm].
func ResultView(blocks []slack.Block) slack.View {
	return slack.View{
		Type:       "modal",
		CallbackID: CallbackID,
		Title:      slack.PlainText(viewTitle),
		Submit:     slack.PlainText("再検索"),
		Close:      slack.PlainText("閉じる"),
		Blocks:     blocks,
	}
}

// FailureView replaces the [SearchingView] if the lookup fails.
func FailureView() slack.View {
	return ResultView([]slack.Block{slack.NewSection(":warning: " + FailureMessage)})
}

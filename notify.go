package main

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// FormatUploadSummary renders one upload's outcome for the summary channel.
func FormatUploadSummary(source string, s UploadSummary) string {
	cacheNote := ""
	if s.FromCache {
		cacheNote = " (served from cache)"
	}
	return fmt.Sprintf("Ticket upload %s: %d tickets, %d new intents%s", source, s.TotalTickets, s.ClustersCreated, cacheNote)
}

// NotifyUploadSummary posts an upload summary to the configured channel.
// Notification failures are logged and swallowed; they never fail the
// upload that produced them.
func NotifyUploadSummary(api *slack.Client, channelID, text string) {
	if api == nil || channelID == "" {
		return
	}
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("summary post error: %v", err)
		return
	}
	log.Printf("summary posted channel=%s", channelID)
}

package notifier

// Notifier represents a service for delivering messages to a subscriber's chat
type Notifier interface {
	// Send delivers a plain-text message to the given chat
	Send(chatID int64, text string) error
}

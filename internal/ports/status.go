package ports

import "context"

// StatusSetter updates a user's chat-presence status on the platform.
// Setting the same status twice is safe; callers may re-send the current
// decision every cycle without tracking what was set before.
type StatusSetter interface {
	// SetStatus applies text/emoji to user's profile using token. Empty text
	// and emoji clear the status.
	SetStatus(ctx context.Context, token, user, text, emoji string) error
}

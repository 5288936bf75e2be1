package localization

// Locale selects the language of user-facing strings built by the engine.
// Members carry a single language flag; everything else falls back to English.
type Locale int

const (
	English Locale = iota
	Korean
)

// ForKorean maps the member's language flag to a Locale.
func ForKorean(korean bool) Locale {
	if korean {
		return Korean
	}
	return English
}

// ImagePlaceholder is the fixed text shown in room summaries and push bodies
// for image messages. The raw attachment URL is never shown.
func ImagePlaceholder(l Locale) string {
	if l == Korean {
		return "사진을 보냈습니다"
	}
	return "Sent a photo"
}

// PushTitle is the notification title for a new chat message.
func PushTitle(l Locale) string {
	if l == Korean {
		return "새로운 채팅"
	}
	return "New message"
}

// PushBody builds the notification body: "<sender>: <text>". The caller
// substitutes the image placeholder for image messages.
func PushBody(senderName, text string) string {
	return senderName + ": " + text
}

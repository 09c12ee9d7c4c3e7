package models

// CallbackTypeComplete is the final completion marker. Anything else is an
// intermediate progress notification and must be acknowledged as a no-op.
const CallbackTypeComplete = "complete"

// CallbackEnvelope is the provider's webhook payload for a generation job.
type CallbackEnvelope struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data *CallbackData `json:"data"`
}

// CallbackData carries the job correlation id and the generated items.
type CallbackData struct {
	TaskID       string         `json:"task_id"`
	CallbackType string         `json:"callbackType"`
	Data         []CallbackItem `json:"data"`
}

// CallbackItem is one generated track. Depending on the completion phase the
// provider populates audio_url or only stream_audio_url.
type CallbackItem struct {
	ID             string  `json:"id"`
	AudioURL       string  `json:"audio_url"`
	StreamAudioURL string  `json:"stream_audio_url"`
	ImageURL       string  `json:"image_url"`
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
}

// IsFinal reports whether the envelope marks job completion.
func (e *CallbackEnvelope) IsFinal() bool {
	return e.Data != nil && e.Data.CallbackType == CallbackTypeComplete
}

// AudioURL returns the first item's audio URL, falling back to the stream
// URL when the permanent one is not populated yet. Empty when neither is.
func (e *CallbackEnvelope) AudioURL() string {
	if e.Data == nil || len(e.Data.Data) == 0 {
		return ""
	}
	item := e.Data.Data[0]
	if item.AudioURL != "" {
		return item.AudioURL
	}
	return item.StreamAudioURL
}

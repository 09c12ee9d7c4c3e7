package models

import "testing"

func TestCallbackIsFinal(t *testing.T) {
	for _, typ := range []string{"text", "first", ""} {
		env := &CallbackEnvelope{Data: &CallbackData{TaskID: "job-1", CallbackType: typ}}
		if env.IsFinal() {
			t.Errorf("callbackType %q must not be final", typ)
		}
	}

	env := &CallbackEnvelope{Data: &CallbackData{TaskID: "job-1", CallbackType: CallbackTypeComplete}}
	if !env.IsFinal() {
		t.Error("complete callback should be final")
	}

	if (&CallbackEnvelope{}).IsFinal() {
		t.Error("envelope without data must not be final")
	}
}

func TestCallbackAudioURLFallback(t *testing.T) {
	env := &CallbackEnvelope{Data: &CallbackData{
		TaskID:       "job-1",
		CallbackType: CallbackTypeComplete,
		Data: []CallbackItem{
			{StreamAudioURL: "https://cdn.example.com/stream.mp3"},
		},
	}}
	if got := env.AudioURL(); got != "https://cdn.example.com/stream.mp3" {
		t.Errorf("AudioURL = %q, want the stream fallback", got)
	}

	env.Data.Data[0].AudioURL = "https://cdn.example.com/final.mp3"
	if got := env.AudioURL(); got != "https://cdn.example.com/final.mp3" {
		t.Errorf("AudioURL = %q, want the permanent URL to take precedence", got)
	}

	empty := &CallbackEnvelope{Data: &CallbackData{TaskID: "job-1", CallbackType: CallbackTypeComplete}}
	if empty.AudioURL() != "" {
		t.Error("envelope without items should yield an empty URL")
	}
}

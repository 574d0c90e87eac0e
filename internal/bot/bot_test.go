package bot

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeClient scripts one error per call and records every outgoing message.
type fakeClient struct {
	errs []error
	sent []tgbotapi.MessageConfig
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	if len(f.errs) == 0 {
		return tgbotapi.Message{}, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return tgbotapi.Message{}, err
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (f *fakeClient) StopReceivingUpdates() {}

func TestReplySendsHTML(t *testing.T) {
	fake := &fakeClient{}
	b := &Bot{api: fake}

	b.reply(42, "<b>merhaba</b>")

	if len(fake.sent) != 1 {
		t.Fatalf("sent %d messages; want 1", len(fake.sent))
	}
	if fake.sent[0].ParseMode != tgbotapi.ModeHTML {
		t.Errorf("ParseMode = %q; want HTML", fake.sent[0].ParseMode)
	}
}

func TestReplyFallsBackToPlainText(t *testing.T) {
	fake := &fakeClient{errs: []error{errors.New("Bad Request: can't parse entities")}}
	b := &Bot{api: fake}

	b.reply(42, "a < b")

	if len(fake.sent) != 2 {
		t.Fatalf("sent %d messages; want HTML attempt plus plain retry", len(fake.sent))
	}
	if fake.sent[1].ParseMode != "" {
		t.Errorf("fallback ParseMode = %q; want plain", fake.sent[1].ParseMode)
	}
	if fake.sent[1].Text != "a < b" {
		t.Errorf("fallback text = %q", fake.sent[1].Text)
	}
}

func TestReplyStopsAfterFailedFallback(t *testing.T) {
	fake := &fakeClient{errs: []error{
		errors.New("Bad Request: can't parse entities"),
		errors.New("Forbidden: bot was blocked by the user"),
	}}
	b := &Bot{api: fake}

	b.reply(42, "merhaba")

	if len(fake.sent) != 2 {
		t.Fatalf("sent %d messages; want exactly 2 attempts", len(fake.sent))
	}
}

package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FirsatRadar/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeSender replays a scripted sequence of send results.
type fakeSender struct {
	errs  []error
	calls int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	return tgbotapi.Message{}, err
}

func newTestDispatcher(s sender) (*Dispatcher, *[]time.Duration) {
	var sleeps []time.Duration
	d := &Dispatcher{
		bot:        s,
		maxRetries: 3,
		retryDelay: 5 * time.Second,
		sleep:      func(dur time.Duration) { sleeps = append(sleeps, dur) },
	}
	return d, &sleeps
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	fake := &fakeSender{errs: []error{nil}}
	d, sleeps := newTestDispatcher(fake)

	if !d.Send(context.Background(), 1, "merhaba") {
		t.Fatal("expected success")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("unexpected sleeps: %v", *sleeps)
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("connection reset")
	fake := &fakeSender{errs: []error{boom, boom, nil}}
	d, sleeps := newTestDispatcher(fake)

	if !d.Send(context.Background(), 1, "merhaba") {
		t.Fatal("expected eventual success")
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want 3", fake.calls)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %v, want two retry delays", *sleeps)
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	boom := errors.New("bad gateway")
	fake := &fakeSender{errs: []error{boom, boom, boom, boom}}
	d, _ := newTestDispatcher(fake)

	if d.Send(context.Background(), 1, "merhaba") {
		t.Fatal("expected failure after exhausting retries")
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want exactly maxRetries", fake.calls)
	}
}

func TestSendRateLimitWaitDoesNotConsumeRetry(t *testing.T) {
	rateLimited := &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 10},
	}
	fake := &fakeSender{errs: []error{rateLimited, nil}}
	d, sleeps := newTestDispatcher(fake)

	if !d.Send(context.Background(), 1, "merhaba") {
		t.Fatal("expected success after rate-limit wait")
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2", fake.calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 10*time.Second {
		t.Errorf("sleeps = %v, want exactly one 10s wait", *sleeps)
	}
}

func TestSendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &fakeSender{}
	d, _ := newTestDispatcher(fake)

	if d.Send(ctx, 1, "merhaba") {
		t.Fatal("expected failure with cancelled context")
	}
	if fake.calls != 0 {
		t.Errorf("calls = %d, want 0", fake.calls)
	}
}

func TestBuildMessage(t *testing.T) {
	snap := models.ProductSnapshot{
		Name:            "Süpürge <Dik>",
		URL:             "https://www.teknosa.com/p/x",
		ListPrice:       2000,
		SalePrice:       1400,
		DiscountPercent: 30,
	}
	msg := BuildMessage("Teknosa", snap)

	for _, want := range []string{
		"OUTLET FIRSATI",
		"<b>TEKNOSA</b>",
		"Süpürge &lt;Dik&gt;",
		"Normal Fiyat: 2.000 TL",
		"İndirimli Fiyat: 1.400 TL",
		"İndirim Oranı: %30",
		"https://www.teknosa.com/p/x",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

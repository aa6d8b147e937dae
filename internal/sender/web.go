package sender

import (
	"context"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
)

const webURL = "https://web.whatsapp.com"

// BrowserConfig configures the WhatsApp Web session.
type BrowserConfig struct {
	// UserDataDir is the persistent Chrome profile holding the login.
	UserDataDir string
	ChromePath  string
	Headless    bool
	// LoginTimeout bounds the wait for the chat list (QR scan included).
	LoginTimeout time.Duration
	// SendTimeout bounds one Send call end to end.
	SendTimeout time.Duration
}

// WebSender drives one WhatsApp Web tab through chromedp. The browser is
// started by the first Acquire and closed when the last holder releases it.
// Send must not be called concurrently on the same session.
type WebSender struct {
	cfg BrowserConfig

	mu          sync.Mutex
	refs        int
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewWebSender returns an idle sender; nothing starts until Acquire.
func NewWebSender(cfg BrowserConfig) *WebSender {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 60 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 45 * time.Second
	}
	return &WebSender{cfg: cfg}
}

// Acquire starts the browser if needed and waits until WhatsApp Web shows
// the chat list.
func (w *WebSender) Acquire(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.refs > 0 {
		w.refs++
		return nil
	}

	if w.cfg.UserDataDir != "" {
		if err := os.MkdirAll(w.cfg.UserDataDir, 0o755); err != nil {
			return eris.Wrapf(err, "sender: create profile dir %s", w.cfg.UserDataDir)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", w.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.WindowSize(1200, 800),
	)
	if w.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(w.cfg.UserDataDir))
	}
	if w.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(w.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	zap.L().Info("sender: opening whatsapp web", zap.String("profile", w.cfg.UserDataDir))
	if err := chromedp.Run(browserCtx, chromedp.Navigate(webURL)); err != nil {
		cancel()
		allocCancel()
		return eris.Wrap(err, "sender: start browser")
	}

	loginCtx, loginCancel := context.WithTimeout(browserCtx, w.cfg.LoginTimeout)
	defer loginCancel()
	stop := context.AfterFunc(ctx, loginCancel)
	defer stop()

	zap.L().Info("sender: waiting for login, scan the QR code if shown", zap.Duration("timeout", w.cfg.LoginTimeout))
	if err := chromedp.Run(loginCtx, chromedp.WaitVisible(`#side`, chromedp.ByQuery)); err != nil {
		cancel()
		allocCancel()
		return eris.Wrap(err, "sender: wait for whatsapp web login")
	}

	w.ctx, w.cancel, w.allocCancel = browserCtx, cancel, allocCancel
	w.refs = 1
	zap.L().Info("sender: whatsapp web ready")
	return nil
}

// Release drops one hold on the session and closes the browser after the last.
func (w *WebSender) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.refs == 0 {
		return nil
	}
	w.refs--
	if w.refs > 0 {
		return nil
	}

	zap.L().Info("sender: closing browser")
	w.cancel()
	w.allocCancel()
	w.ctx, w.cancel, w.allocCancel = nil, nil, nil
	return nil
}

func (w *WebSender) browser() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

// chatProbe reports the state of a freshly opened chat URL: "ready" once the
// composer is present, "invalid" when WhatsApp shows its invalid-number popup.
const chatProbe = `(() => {
	const popup = document.querySelector('[data-animate-modal-popup="true"]');
	if (popup && /invalid|not on whatsapp/i.test(popup.innerText)) return "invalid";
	for (const sel of ['footer div[contenteditable="true"]', 'div[contenteditable="true"][data-tab="10"]', 'div[contenteditable="true"][role="textbox"]']) {
		if (document.querySelector(sel)) return "ready";
	}
	return "";
})()`

const composerSelector = `footer div[contenteditable="true"]`

// sentProbe reports whether the last outgoing bubble shows a tick.
const sentProbe = `!!document.querySelector('span[data-icon="msg-check"], span[data-icon="msg-dblcheck"], span[data-icon="msg-dblcheck-ack"]')`

// Send opens a chat for the number formed from country's dial prefix and
// localPhone, with message prefilled, and presses Enter.
func (w *WebSender) Send(ctx context.Context, name, localPhone string, country model.CountryInfo, message string) error {
	browserCtx := w.browser()
	if browserCtx == nil {
		return Generic(eris.New("sender: session not acquired"))
	}

	number := strings.TrimPrefix(country.Prefix, "+") + phone.Normalize(localPhone)
	log := zap.L().With(zap.String("name", name), zap.String("phone", number))

	sendCtx, cancel := context.WithTimeout(browserCtx, w.cfg.SendTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	log.Debug("sender: opening chat")
	err := chromedp.Run(sendCtx,
		chromedp.Evaluate(`window.onbeforeunload = null;`, nil),
		chromedp.Navigate(ChatURL(number, message)),
	)
	if err != nil {
		return Generic(eris.Wrap(err, "sender: open chat"))
	}

	state, err := poll(sendCtx, 500*time.Millisecond, func(ctx context.Context) (string, error) {
		var s string
		err := chromedp.Run(ctx, chromedp.Evaluate(chatProbe, &s))
		return s, err
	})
	if err != nil {
		return Generic(eris.Wrap(err, "sender: wait for chat"))
	}
	if state == "invalid" {
		log.Info("sender: number not on whatsapp")
		return NotOnNetwork(number)
	}

	err = chromedp.Run(sendCtx,
		chromedp.Click(composerSelector, chromedp.ByQuery),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.KeyEvent("\r"),
	)
	if err != nil {
		return Generic(eris.Wrap(err, "sender: press send"))
	}

	confirmCtx, confirmCancel := context.WithTimeout(sendCtx, 20*time.Second)
	defer confirmCancel()
	_, err = poll(confirmCtx, time.Second, func(ctx context.Context) (string, error) {
		var sent bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(sentProbe, &sent)); err != nil || !sent {
			return "", err
		}
		return "sent", nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Generic(ctx.Err())
		}
		// A missing tick is not treated as a failure.
		log.Warn("sender: no sent confirmation", zap.Error(err))
	}

	log.Info("sender: message sent")
	return nil
}

// ChatURL builds the click-to-chat URL with message prefilled.
func ChatURL(number, message string) string {
	q := url.Values{}
	q.Set("phone", number)
	if message != "" {
		q.Set("text", normalizeNewlines(message))
	}
	return webURL + "/send?" + q.Encode()
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// poll calls fn every interval until it returns a non-empty result, an error,
// or ctx is done.
func poll(ctx context.Context, interval time.Duration, fn func(context.Context) (string, error)) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s, err := fn(ctx)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const headlessTimeout = 30 * time.Second

// headlessBrowser launches one shared Chrome process on first use; each
// render runs in a fresh tab so a wedged page cannot poison later renders.
type headlessBrowser struct {
	once       sync.Once
	browserCtx context.Context
	cancel     context.CancelFunc
}

func (b *headlessBrowser) init() {
	b.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		b.browserCtx = browserCtx
		b.cancel = func() {
			cancelBrowser()
			cancelAlloc()
		}
	})
}

// Render loads target in a new tab and returns the document HTML. The tab
// gets a short settle delay after DOM ready so XHR-driven pages have a
// chance to paint their content.
func (b *headlessBrowser) Render(ctx context.Context, target string) (string, error) {
	b.init()

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, headlessTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// Close shuts down the shared browser if it was ever started.
func (b *headlessBrowser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

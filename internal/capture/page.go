package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/vigil-watch/vigil/internal/logging"
)

// PageSource captures screenshots of a web page through a headless browser.
// The page is navigated once at first capture and then screenshotted on
// every tick, so in-page changes (animations, live content) show up without
// reloading.
type PageSource struct {
	url       string
	idleAfter time.Duration
	logger    logging.Logger

	browserCtx context.Context
	cancels    []context.CancelFunc

	navigated bool
	title     string
	seq       atomic.Uint64
}

// NewPageSource starts a browser context for the scope URL. The browser is
// kept alive for the lifetime of the source and torn down on Close.
func NewPageSource(cfg Config, scope Scope, logger logging.Logger) (*PageSource, error) {
	if scope.Kind != ScopePage || scope.URL == "" {
		return nil, fmt.Errorf("page backend requires a page scope with a url")
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	idleAfter := cfg.PageIdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	return &PageSource{
		url:        scope.URL,
		idleAfter:  idleAfter,
		logger:     logger,
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
	}, nil
}

// waitNetworkIdle returns a channel that fires once no network requests
// have been in flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					close(idleChan)
				})
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) == 0 {
				startTimer()
			}
		}
	})

	// Covers pages that issue no requests after navigation.
	startTimer()

	return idleChan
}

func (p *PageSource) navigate(ctx context.Context) error {
	idle := waitNetworkIdle(p.browserCtx, p.idleAfter)

	if err := chromedp.Run(p.browserCtx, chromedp.Navigate(p.url)); err != nil {
		return fmt.Errorf("navigate %s: %w", p.url, err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	var html string
	if err := chromedp.Run(p.browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return fmt.Errorf("read page html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err == nil {
		p.title = doc.Find("title").First().Text()
	} else if p.logger != nil {
		p.logger.Warn("failed to parse page html for title",
			logging.Field{Key: "url", Value: p.url},
			logging.Field{Key: "error", Value: err.Error()})
	}

	p.navigated = true
	return nil
}

func (p *PageSource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !p.navigated {
		if err := p.navigate(ctx); err != nil {
			return nil, err
		}
	}

	var buf []byte
	if err := chromedp.Run(p.browserCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", p.url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	f := FromImage(img, time.Now(), p.seq.Add(1)-1)
	f.Label = p.title
	if f.Label == "" {
		f.Label = p.url
	}
	return f, nil
}

func (p *PageSource) Close() error {
	for _, cancel := range p.cancels {
		cancel()
	}
	return nil
}

package webscraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configures the Chromium instance used to render pages.
type PlaywrightOptions struct {
	Headless            bool
	ExecutablePath      string   // empty uses the Playwright-managed browser
	Args                []string // e.g. --no-sandbox in containers
	NavigationTimeout   time.Duration
	SkipInstallBrowsers bool
}

// PlaywrightLauncher starts one Playwright driver and one Chromium per crawl.
type PlaywrightLauncher struct {
	opts   PlaywrightOptions
	logger *slog.Logger
}

func NewPlaywrightLauncher(opts PlaywrightOptions, logger *slog.Logger) *PlaywrightLauncher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaywrightLauncher{opts: opts, logger: logger}
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		SkipInstallBrowsers: l.opts.SkipInstallBrowsers,
	})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args:     l.opts.Args,
	}
	if l.opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(l.opts.ExecutablePath)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			l.logger.Warn("stopping playwright", "error", stopErr)
		}
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	l.logger.Debug("browser launched",
		"headless", l.opts.Headless,
		"executable", l.opts.ExecutablePath,
		"args", strings.Join(l.opts.Args, " "),
	)

	return &playwrightBrowser{
		pwClient:   pw,
		browser:    browser,
		navTimeout: l.opts.NavigationTimeout,
	}, nil
}

type playwrightBrowser struct {
	pwClient   *playwright.Playwright
	browser    playwright.Browser
	navTimeout time.Duration
}

func (b *playwrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, err
	}
	page.SetDefaultNavigationTimeout(float64(b.navTimeout.Milliseconds()))
	return &playwrightPage{page: page}, nil
}

// Close shuts down the browser and the driver process.
func (b *playwrightBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pwClient.Stop())
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) OnConsole(fn func(ConsoleEvent)) {
	p.page.OnConsole(consoleHandler(fn))
}

func (p *playwrightPage) OnDialog(fn func(Dialog)) {
	p.page.OnDialog(dialogHandler(fn))
}

func consoleHandler(fn func(ConsoleEvent)) func(playwright.ConsoleMessage) {
	return func(msg playwright.ConsoleMessage) {
		fn(consoleEvent(msg.Type(), msg.Text(), msg.Location()))
	}
}

// consoleEvent converts a browser console message. The location is missing
// for messages that do not come from a script.
func consoleEvent(severity, text string, loc *playwright.ConsoleMessageLocation) ConsoleEvent {
	var (
		source string
		line   int
	)
	if loc != nil {
		source, line = loc.URL, loc.LineNumber
	}
	return NewConsoleEvent(severity, text, source, line)
}

func dialogHandler(fn func(Dialog)) func(playwright.Dialog) {
	return func(d playwright.Dialog) {
		fn(d)
	}
}

func (p *playwrightPage) Goto(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("navigation to %s returned no response", url)
	}
	return &Response{Status: resp.Status(), URL: resp.URL()}, nil
}

func (p *playwrightPage) Links(ctx context.Context) ([]RawLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := p.page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	return ExtractLinks(strings.NewReader(content), p.page.URL())
}

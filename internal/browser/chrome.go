package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	Headless  bool
	UserAgent string
}

// ChromeDriver starts tabs in a single shared Chrome process.
type ChromeDriver struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

func NewChromeDriver(opts ChromeOptions) *ChromeDriver {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return &ChromeDriver{allocCtx: allocCtx, cancel: cancel}
}

func (d *ChromeDriver) NewSession(ctx context.Context) (Session, error) {
	tabCtx, cancel := chromedp.NewContext(d.allocCtx)
	// The first Run starts the browser; it must not use a short-lived context
	// or the browser would die with it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("starting chrome tab: %w", err)
	}
	return &chromeSession{ctx: tabCtx, cancel: cancel}, nil
}

func (d *ChromeDriver) Close() {
	d.cancel()
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab while honouring the caller's deadline.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for selector %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (s *chromeSession) Type(ctx context.Context, selector, text string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery), chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("typing into selector %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("clicking selector %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) UploadFiles(ctx context.Context, selector string, paths []string) error {
	if err := s.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("uploading files to selector %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading selector %s: %w", selector, err)
	}
	return text, nil
}

func (s *chromeSession) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (s *chromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	return out, err
}

func (s *chromeSession) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

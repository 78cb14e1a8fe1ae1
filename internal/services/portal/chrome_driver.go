package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// ChromeDriver implements interfaces.Driver on a chromedp browser context.
// Element actions wait at most elementTimeout for their element.
type ChromeDriver struct {
	browserCtx     context.Context
	elementTimeout time.Duration
	navTimeout     time.Duration
	logger         arbor.ILogger
}

// NewChromeDriver wraps an already started chromedp browser context
func NewChromeDriver(browserCtx context.Context, elementTimeout, navTimeout time.Duration, logger arbor.ILogger) *ChromeDriver {
	return &ChromeDriver{
		browserCtx:     browserCtx,
		elementTimeout: elementTimeout,
		navTimeout:     navTimeout,
		logger:         logger,
	}
}

// run executes actions on the browser, bounded by timeout and cancelled
// together with ctx.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.browserCtx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the page load event within the navigation timeout.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, d.navTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Fill types value into the element with id elementID, clearing it first when clear is set.
func (d *ChromeDriver) Fill(ctx context.Context, elementID, value string, clear bool) error {
	actions := []chromedp.Action{chromedp.WaitReady(elementID, chromedp.ByID)}
	if clear {
		actions = append(actions, chromedp.Clear(elementID, chromedp.ByID))
	}
	actions = append(actions, chromedp.SendKeys(elementID, value, chromedp.ByID))

	if err := d.run(ctx, d.elementTimeout, actions...); err != nil {
		return fmt.Errorf("fill %s: %w", elementID, err)
	}
	return nil
}

// Click clicks the element with id elementID. With waitClickable it first waits
// for the element to be visible and enabled.
func (d *ChromeDriver) Click(ctx context.Context, elementID string, waitClickable bool) error {
	var actions []chromedp.Action
	if waitClickable {
		actions = append(actions,
			chromedp.WaitVisible(elementID, chromedp.ByID),
			chromedp.WaitEnabled(elementID, chromedp.ByID),
		)
	} else {
		actions = append(actions, chromedp.WaitReady(elementID, chromedp.ByID))
	}
	actions = append(actions, chromedp.Click(elementID, chromedp.ByID))

	if err := d.run(ctx, d.elementTimeout, actions...); err != nil {
		return fmt.Errorf("click %s: %w", elementID, err)
	}
	return nil
}

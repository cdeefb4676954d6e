// Package watcher runs the background sweep loop: every stored product is
// re-extracted on a fixed interval plus jitter, price changes are pushed to
// the owning chat, and the new price is persisted.
package watcher

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"time"

	"mvdham/bolwatch/helpers"
	"mvdham/bolwatch/internal/extractor"
	"mvdham/bolwatch/internal/store"
	"mvdham/bolwatch/logger"
	"mvdham/bolwatch/services/notifier"
)

// recoverySleep is the fixed pause after a sweep blows up, before retrying
const recoverySleep = 60 * time.Second

// Options configures the sweep cadence
type Options struct {
	Interval  time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

// Watcher owns the polling loop
type Watcher struct {
	ctx      context.Context
	store    store.Store
	source   extractor.Source
	notifier notifier.Notifier
	log      *logger.Logger
	opts     Options
	rnd      *mathrand.Rand
}

// New creates a watcher
func New(ctx context.Context, st store.Store, src extractor.Source, n notifier.Notifier, opts Options) *Watcher {
	return &Watcher{
		ctx:      ctx,
		store:    st,
		source:   src,
		notifier: n,
		log:      logger.ForWatcher(),
		opts:     opts,
		rnd:      mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Start loops until the context is cancelled. A sweep that panics is logged
// and followed by a short recovery sleep; the loop itself never dies.
func (w *Watcher) Start() error {
	for {
		start := time.Now()
		ok := w.runSweep()

		pause := w.opts.Interval + helpers.RandomDelay(w.rnd, w.opts.JitterMin, w.opts.JitterMax)
		if !ok {
			pause = recoverySleep
		} else {
			w.log.Debug().
				Dur("elapsed", time.Since(start)).
				Dur("next_in", pause).
				Msg("Sweep finished")
		}

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(pause):
		}
	}
}

// runSweep executes one sweep, converting a panic into a logged failure
func (w *Watcher) runSweep() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			w.log.Error().
				Interface("panic", r).
				Msg("Sweep failed, sleeping before retry")
		}
	}()

	w.sweep()
	return true
}

// sweep iterates a snapshot taken at loop start, so products added or
// removed mid-sweep are simply picked up next time. One product's failure
// never stops the rest of the sweep.
func (w *Watcher) sweep() {
	for chatID, products := range w.store.Snapshot() {
		for url, product := range products {
			select {
			case <-w.ctx.Done():
				return
			default:
			}
			w.checkProduct(chatID, url, product)
		}
	}
}

// checkProduct re-extracts one product and notifies on any price change
func (w *Watcher) checkProduct(chatID, url string, product store.Product) {
	w.log.Debug().Str("url", url).Msg("Checking price")

	result, err := w.source.Extract(url)
	if err != nil {
		w.log.Warn().Err(err).Str("url", url).Msg("Price check failed, skipping")
		return
	}

	// Exact inequality: any change triggers a notification
	if result.Price == product.LastPrice {
		return
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		w.log.Error().Err(err).Str("chat_id", chatID).Msg("Invalid chat identifier in store")
		return
	}

	if err := w.notifier.Send(id, FormatAlert(product, url, result.Price)); err != nil {
		w.log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to send price alert")
	} else {
		w.log.Info().
			Str("name", product.Name).
			Float64("old_price", product.LastPrice).
			Float64("new_price", result.Price).
			Msg("Sent price alert")
	}

	// A failed send does not block the update; the stored price converges
	product.LastPrice = result.Price
	product.LastCheck = time.Now()
	if err := w.store.Upsert(chatID, url, product); err != nil {
		w.log.Error().Err(err).Str("url", url).Msg("Failed to persist price update")
	}
}

// FormatAlert renders the price change notification for one product
func FormatAlert(product store.Product, url string, newPrice float64) string {
	change := newPrice - product.LastPrice

	// A zero stored price has no meaningful percentage base
	var changePercent float64
	if product.LastPrice != 0 {
		changePercent = (change / product.LastPrice) * 100
	}

	direction := "📉"
	if change > 0 {
		direction = "📈"
	}
	absChange := change
	if absChange < 0 {
		absChange = -absChange
	}

	return fmt.Sprintf(
		"💰 Price Change Alert!\n\n"+
			"📦 %s\n"+
			"Old price: %s\n"+
			"New price: %s\n"+
			"Change: %s %s (%+.1f%%)\n\n"+
			"🔗 %s",
		product.Name,
		helpers.FormatPrice(product.LastPrice),
		helpers.FormatPrice(newPrice),
		direction, helpers.FormatPrice(absChange), changePercent,
		url,
	)
}

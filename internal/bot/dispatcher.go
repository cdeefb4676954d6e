package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mvdham/bolwatch/helpers"
	"mvdham/bolwatch/internal/extractor"
	"mvdham/bolwatch/internal/store"
	"mvdham/bolwatch/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `🤖 Welcome to Bol.com Price Monitor Bot!

Available commands:
/add <url> - Start monitoring a new product
/list - List all monitored products
/remove - Remove a product from monitoring
/help - Show this help message

Simply send me a Bol.com product URL and I'll monitor its price!`

const fetchFailedText = "Sorry, I couldn't fetch the product information. Please check if:\n" +
	"1. The URL is correct\n" +
	"2. The product is still available\n" +
	"3. The website is accessible\n\n" +
	"Try again in a few minutes."

// Dispatcher routes chat commands to the store and the extractor and
// formats plain-text replies. Handlers are pure with respect to Telegram:
// they return text and optional markup, so the runner owns all sending.
type Dispatcher struct {
	store  store.Store
	source extractor.Source
	prefix string
	log    *logger.Logger

	// Pending removal menus, one per chat. Each /remove replaces the
	// chat's whole token map and bumps its generation, so tokens minted
	// for an earlier menu can never be keys of the current one.
	mu      sync.Mutex
	pending map[int64]map[string]string
	menuGen map[int64]int
}

// NewDispatcher creates a dispatcher. prefix is the required product URL
// prefix; anything else is rejected before any network traffic.
func NewDispatcher(st store.Store, src extractor.Source, prefix string) *Dispatcher {
	return &Dispatcher{
		store:   st,
		source:  src,
		prefix:  prefix,
		log:     logger.ForBot(),
		pending: make(map[int64]map[string]string),
		menuGen: make(map[int64]int),
	}
}

// Help returns the static welcome/usage text (also used for /start)
func (d *Dispatcher) Help() string {
	return welcomeText
}

// Add validates the URL, extracts the product synchronously and persists it.
// progress is called with an interim message once validation has passed,
// before the blocking extraction; it may be nil.
func (d *Dispatcher) Add(chatID int64, args string, progress func(text string)) string {
	url := strings.TrimSpace(args)
	if url == "" {
		return fmt.Sprintf("Please provide a Bol.com product URL\nExample: /add %s/product-url", d.prefix)
	}

	if !strings.HasPrefix(url, d.prefix) {
		return "Please provide a valid Bol.com URL"
	}

	chat := chatKey(chatID)
	if _, exists := d.store.Get(chat, url); exists {
		return "This product is already being monitored!"
	}

	if progress != nil {
		progress("🔍 Fetching product information...")
	}

	result, err := d.source.Extract(url)
	if err != nil {
		d.log.Warn().Err(err).Str("url", url).Msg("Extraction failed during add")
		return fetchFailedText
	}

	err = d.store.Upsert(chat, url, store.Product{
		Name:      result.Name,
		LastPrice: result.Price,
		LastCheck: time.Now(),
	})
	if err != nil {
		// Best-effort persistence: the product is monitored in memory
		d.log.Error().Err(err).Str("url", url).Msg("Failed to persist new product")
	}

	return fmt.Sprintf(
		"✅ Added to monitoring:\n"+
			"📦 %s\n"+
			"💰 Current price: %s\n"+
			"I'll notify you when the price changes!",
		result.Name, helpers.FormatPrice(result.Price),
	)
}

// List renders the chat's monitored products
func (d *Dispatcher) List(chatID int64) string {
	products := d.store.Products(chatKey(chatID))
	if len(products) == 0 {
		return "You have no products being monitored."
	}

	var b strings.Builder
	b.WriteString("📊 Your Monitored Products:\n\n")
	for url, p := range products {
		fmt.Fprintf(&b, "📦 %s\n", p.Name)
		fmt.Fprintf(&b, "💰 Last price: %s\n", helpers.FormatPrice(p.LastPrice))
		fmt.Fprintf(&b, "🔗 %s\n\n", url)
	}
	return b.String()
}

// Remove starts the interactive removal flow: a button per product, each
// carrying a short opaque token instead of the full URL
func (d *Dispatcher) Remove(chatID int64) (string, *tgbotapi.InlineKeyboardMarkup) {
	products := d.store.Products(chatKey(chatID))
	if len(products) == 0 {
		return "You have no products to remove.", nil
	}

	// Stable button order, independent of map iteration
	urls := make([]string, 0, len(products))
	for url := range products {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	d.mu.Lock()
	d.menuGen[chatID]++
	gen := d.menuGen[chatID]
	d.mu.Unlock()

	tokens := make(map[string]string, len(urls))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, url := range urls {
		p := products[url]
		token := fmt.Sprintf("rm_%d_%d", gen, i)
		tokens[token] = url
		label := fmt.Sprintf("%s (%s)", p.Name, helpers.FormatPrice(p.LastPrice))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, token),
		))
	}

	d.mu.Lock()
	d.pending[chatID] = tokens
	d.mu.Unlock()

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return "Select a product to remove:", &markup
}

// Resolve handles an inline-keyboard selection. Tokens from any menu older
// than the chat's latest /remove are stale and rejected.
func (d *Dispatcher) Resolve(chatID int64, data string) string {
	if !strings.HasPrefix(data, "rm_") {
		return "❌ Error: Invalid removal request."
	}

	d.mu.Lock()
	url, ok := d.pending[chatID][data]
	if ok {
		delete(d.pending[chatID], data)
	}
	d.mu.Unlock()

	if !ok {
		return "❌ Error: Invalid removal request."
	}

	product, existed, err := d.store.Delete(chatKey(chatID), url)
	if err != nil {
		d.log.Error().Err(err).Str("url", url).Msg("Failed to persist removal")
	}
	if !existed {
		return "❌ Error: Product not found."
	}
	return fmt.Sprintf("✅ Removed %s from monitoring.", product.Name)
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

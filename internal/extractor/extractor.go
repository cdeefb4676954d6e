package extractor

import (
	"fmt"
	"strings"
	"time"

	"mvdham/bolwatch/helpers"
	"mvdham/bolwatch/logger"
	errs "mvdham/bolwatch/pkg/errors"
	"mvdham/bolwatch/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// Result is a successfully extracted product snapshot
type Result struct {
	Name  string
	Price float64
}

// Source is the contract the dispatcher and watcher extract prices through
type Source interface {
	Extract(url string) (*Result, error)
}

// The target site serves structurally different markup across product
// categories and AB tests, so both cascades are ordered first-match-wins
// fallback lists rather than a single selector.
var (
	nameSelectors = []string{
		`h1[data-test="title"]`,
		`span[data-test="title"]`,
		`h1.product-title`,
		`div[data-test="title"]`,
		`h1`,
	}

	priceClasses = []string{
		"promo-price",
		"price-block__price",
		"price",
		"product-price",
		"current-price",
	}
)

// Options configures an Extractor
type Options struct {
	HomepageURL    string
	BlockKey       string
	BlockTime      time.Duration
	WarmupDelayMin time.Duration
	WarmupDelayMax time.Duration
}

// Extractor fetches a product page and recovers its name and price
type Extractor struct {
	session *helpers.Session
	cache   cache.CacheService
	log     *logger.Logger
	opts    Options
}

var _ Source = (*Extractor)(nil)

// New creates an extractor. cacheSvc may be nil to disable rate-limit blocking.
func New(session *helpers.Session, cacheSvc cache.CacheService, opts Options) *Extractor {
	if opts.BlockKey == "" {
		opts.BlockKey = "bolwatch_rate_limited"
	}
	return &Extractor{
		session: session,
		cache:   cacheSvc,
		log:     logger.ForExtractor(),
		opts:    opts,
	}
}

// Extract fetches url and returns the product name and normalized price.
// Failures never escape as panics; every outcome is a typed error.
func (e *Extractor) Extract(url string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errs.NewParsing("extractor", fmt.Sprintf("panic during extraction: %v", r), nil)
		}
	}()

	// Short-circuit while the site has us rate limited
	if e.cache != nil {
		if _, cerr := e.cache.Get(e.opts.BlockKey); cerr == nil {
			return nil, errs.NewRateLimit("extractor", e.opts.BlockTime)
		}
	}

	// Warm-up visit against the homepage plus a randomized pause, so the
	// real request arrives with cookies and organic-looking timing.
	e.session.WarmUp(e.opts.HomepageURL, e.opts.WarmupDelayMin, e.opts.WarmupDelayMax)

	body, ferr := e.session.Fetch(url)
	if ferr != nil {
		if helpers.IsRateLimited(ferr) {
			if e.cache != nil {
				e.cache.Set(e.opts.BlockKey, []byte(e.opts.BlockTime.String()), e.opts.BlockTime)
			}
			return nil, errs.NewRateLimit("extractor", e.opts.BlockTime)
		}
		return nil, errs.NewNetwork("extractor", "failed to fetch product page", ferr)
	}

	doc, derr := goquery.NewDocumentFromReader(body)
	if derr != nil {
		return nil, errs.NewParsing("extractor", "failed to parse HTML", derr)
	}

	name, ok := findName(doc)
	if !ok {
		return nil, errs.NewParsing("extractor", "product name not found", nil)
	}

	rawPrice, ok := findPriceText(doc)
	if !ok {
		return nil, errs.NewParsing("extractor", "price element not found", nil)
	}

	price, perr := ParsePrice(rawPrice)
	if perr != nil {
		return nil, errs.NewParsing("extractor", "price text not parseable", perr)
	}

	e.log.Debug().
		Str("url", url).
		Str("name", name).
		Float64("price", price).
		Msg("Extracted product")

	return &Result{Name: name, Price: price}, nil
}

// findName walks the name selector cascade and returns the first non-empty
// trimmed text
func findName(doc *goquery.Document) (string, bool) {
	for _, sel := range nameSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// findPriceText walks the price class cascade; within a class, the first
// element whose text contains at least one digit wins
func findPriceText(doc *goquery.Document) (string, bool) {
	for _, class := range priceClasses {
		var found string
		doc.Find("." + class).EachWithBreak(func(i int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if containsDigit(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

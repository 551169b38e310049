// Package scoring runs each channel end to end: it calls the detectors and
// the optional capabilities, aggregates through decision, and publishes a
// scan event for every completed request.
package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/scamsniper/internal/cache"
	"github.com/opensource-finance/scamsniper/internal/decision"
	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/heuristics"
	"github.com/opensource-finance/scamsniper/internal/mail"
	"github.com/opensource-finance/scamsniper/internal/metrics"
	"github.com/opensource-finance/scamsniper/internal/ml"
	"github.com/opensource-finance/scamsniper/internal/ocr"
	"github.com/opensource-finance/scamsniper/internal/reputation"
	"github.com/opensource-finance/scamsniper/internal/transaction"
)

var tracer = otel.Tracer("scamsniper-scoring")

// Channel names used for scan events and metrics.
const (
	ChannelText             = "text"
	ChannelURL              = "url"
	ChannelEmail            = "email"
	ChannelOCR              = "ocr"
	ChannelTransaction      = "transaction"
	ChannelTransactionImage = "transaction_image"
)

// Capability errors returned by the image entry points.
var (
	ErrOCRUnavailable = errors.New("ocr service not available")
	ErrNoText         = errors.New("no readable text found in image")
)

// DefaultClassifyTTL is used when no classification cache TTL is configured.
const DefaultClassifyTTL = 5 * time.Minute

// maxEventInput bounds the input echoed into scan events.
const maxEventInput = 500

// transactionKeywords select the transaction path for OCR text.
var transactionKeywords = []string{
	"transaction", "receipt", "transfer", "bank", "amount", "$",
	"currency", "sender", "recipient", "status", "completed", "pending",
}

// Options wires the collaborators of a Service. Every field is optional.
type Options struct {
	Rules       transaction.RuleMatcher
	ML          ml.Classifier
	OCR         ocr.Extractor
	Cache       domain.Cache
	ClassifyTTL time.Duration
	Bus         domain.EventBus
	Metrics     *metrics.Metrics
}

// Service orchestrates the scoring channels.
type Service struct {
	heuristics *heuristics.Engine
	urls       *reputation.Analyzer
	validator  *transaction.Validator
	images     *transaction.ImageAnalyzer

	ml      ml.Classifier
	ocr     ocr.Extractor
	cache   domain.Cache
	ttl     time.Duration
	bus     domain.EventBus
	metrics *metrics.Metrics

	now func() time.Time
}

// NewService creates a scoring service. Missing capabilities degrade to
// their unavailable placeholders.
func NewService(opts Options) *Service {
	if opts.ML == nil {
		opts.ML = ml.Unavailable{}
	}
	if opts.OCR == nil {
		opts.OCR = ocr.Unavailable{}
	}
	if opts.ClassifyTTL <= 0 {
		opts.ClassifyTTL = DefaultClassifyTTL
	}

	return &Service{
		heuristics: heuristics.NewEngine(),
		urls:       reputation.NewAnalyzer(),
		validator:  transaction.NewValidator(opts.Rules),
		images:     transaction.NewImageAnalyzer(),
		ml:         opts.ML,
		ocr:        opts.OCR,
		cache:      opts.Cache,
		ttl:        opts.ClassifyTTL,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		now:        time.Now,
	}
}

// MLAvailable reports whether a classifier was resolved at startup.
func (s *Service) MLAvailable() bool { return s.ml.Available() }

// OCRAvailable reports whether an OCR extractor was resolved at startup.
func (s *Service) OCRAvailable() bool { return s.ocr.Available() }

// ScoreTextAndURL classifies free text with an optional URL.
// Responses are cached by text, URL and model availability, except when the
// classifier is available but failed for this request.
func (s *Service) ScoreTextAndURL(ctx context.Context, text, url string) domain.ClassificationResult {
	channel := ChannelText
	if strings.TrimSpace(text) == "" && url != "" {
		channel = ChannelURL
	}

	ctx, span := tracer.Start(ctx, "scoring.text", trace.WithAttributes(
		attribute.String("scoring.channel", channel),
		attribute.Bool("scoring.has_url", url != ""),
	))
	defer span.End()

	key := s.classifyKey(text, url)
	var res domain.ClassificationResult
	if s.cache != nil {
		hit, err := cache.GetJSON(ctx, s.cache, key, &res)
		if err != nil {
			slog.Warn("classification cache read failed", "error", err)
		}
		s.metrics.CacheLookup(hit)
		span.SetAttributes(attribute.Bool("scoring.cache_hit", hit))
		if hit {
			s.finish(ctx, span, channel, eventInput(text, url), res.Status, res.Score)
			return res
		}
	}

	in := decision.TextInput{
		Heuristic: s.heuristics.Score(text),
		ML:        s.predict(ctx, text),
	}
	if url != "" {
		sig := s.urls.Score(url)
		in.URL = &sig
	}
	res = decision.DecideText(in)

	// A degraded prediction from a live classifier is not cached so the next
	// request consults the model again.
	degraded := s.ml.Available() && in.ML.Label == domain.MLLabelUnknown
	if s.cache != nil && !degraded {
		if err := cache.SetJSON(ctx, s.cache, key, res, s.ttl); err != nil {
			slog.Warn("classification cache write failed", "error", err)
		}
	}

	s.finish(ctx, span, channel, eventInput(text, url), res.Status, res.Score)
	return res
}

// ScoreEmail classifies an email message.
func (s *Service) ScoreEmail(ctx context.Context, msg domain.EmailMessage) domain.EmailResult {
	ctx, span := tracer.Start(ctx, "scoring.email", trace.WithAttributes(
		attribute.Int("email.attachments", len(msg.Attachments)),
	))
	defer span.End()

	in := decision.EmailInput{
		Auth:    mail.AuthScore(msg),
		Sender:  mail.SenderScore(msg.Sender),
		Subject: s.heuristics.Score(msg.Subject),
		Body:    s.heuristics.Score(msg.Body),
		ML:      s.predict(ctx, msg.Body),
	}
	for _, u := range mail.ExtractURLs(msg.Body + " " + msg.Subject) {
		in.URLs = append(in.URLs, s.urls.Score(u))
	}
	for _, name := range msg.Attachments {
		if mail.SuspiciousAttachment(name) {
			in.Attachments = append(in.Attachments, name)
		}
	}
	span.SetAttributes(attribute.Int("email.urls", len(in.URLs)))

	res := decision.DecideEmail(in)
	s.finish(ctx, span, ChannelEmail, msg.Subject, res.Label, float64(res.RiskScore))
	return res
}

// IsTransactionLike reports whether OCR text looks like a transaction receipt.
func IsTransactionLike(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range transactionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ScoreOCRText classifies text extracted from an image, choosing the
// transaction path or the general scam path.
func (s *Service) ScoreOCRText(ctx context.Context, text string) domain.OCRResult {
	txLike := IsTransactionLike(text)
	ctx, span := tracer.Start(ctx, "scoring.ocr", trace.WithAttributes(
		attribute.Bool("ocr.transaction_like", txLike),
	))
	defer span.End()

	var res domain.OCRResult
	if txLike {
		res = decision.DecideOCRTransaction(s.images.Analyze(text))
	} else {
		res = decision.DecideOCR(decision.OCRInput{
			Heuristic: s.heuristics.Score(text),
			ML:        s.predict(ctx, text),
		})
	}
	res.TextExtracted = text

	s.finish(ctx, span, ChannelOCR, text, res.Status, res.Score)
	return res
}

// ScanImage extracts text from an image and scores it.
func (s *Service) ScanImage(ctx context.Context, image []byte) (domain.OCRResult, error) {
	text, err := s.extract(ctx, image)
	if err != nil {
		return domain.OCRResult{}, err
	}
	return s.ScoreOCRText(ctx, text), nil
}

// ValidateTransaction scores a transaction record.
func (s *Service) ValidateTransaction(ctx context.Context, rec domain.TransactionRecord) domain.TransactionResult {
	ctx, span := tracer.Start(ctx, "scoring.transaction")
	defer span.End()

	res := decision.DecideTransaction(s.validator.Validate(rec))
	s.finish(ctx, span, ChannelTransaction, rec.TransactionID, res.Status, float64(res.RiskScore))
	return res
}

// ValidateTransactionImage scores receipt text and, when transactionJSON is
// not empty, cross-checks it against the claimed record. Malformed JSON is
// reported as a reason, never as an error.
func (s *Service) ValidateTransactionImage(ctx context.Context, text, transactionJSON string) domain.TransactionImageResult {
	ctx, span := tracer.Start(ctx, "scoring.transaction_image", trace.WithAttributes(
		attribute.Bool("transaction.has_record", transactionJSON != ""),
	))
	defer span.End()

	image := s.images.Analyze(text)

	var record *domain.TransactionAssessment
	var extra []string
	if transactionJSON != "" {
		var rec domain.TransactionRecord
		if err := json.Unmarshal([]byte(transactionJSON), &rec); err != nil {
			slog.Debug("invalid transaction json", "error", err)
			extra = append(extra, transaction.ReasonInvalidTransaction)
		} else {
			a := s.validator.Validate(rec)
			record = &a
		}
	}

	res := decision.DecideTransactionImage(transaction.CrossCheck(image, record, extra...), text)
	s.finish(ctx, span, ChannelTransactionImage, text, res.Status, float64(res.RiskScore))
	return res
}

// CheckTransactionImage extracts receipt text and cross-checks it.
func (s *Service) CheckTransactionImage(ctx context.Context, image []byte, transactionJSON string) (domain.TransactionImageResult, error) {
	if !s.ocr.Available() {
		return domain.TransactionImageResult{}, ErrOCRUnavailable
	}
	text := s.ocr.Extract(ctx, image)
	return s.ValidateTransactionImage(ctx, text, transactionJSON), nil
}

func (s *Service) extract(ctx context.Context, image []byte) (string, error) {
	if !s.ocr.Available() {
		return "", ErrOCRUnavailable
	}
	text := s.ocr.Extract(ctx, image)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (s *Service) predict(ctx context.Context, text string) domain.MLSignal {
	if !s.ml.Available() {
		return domain.UnknownMLSignal()
	}
	sig := s.ml.Predict(ctx, text)
	if sig.Label == domain.MLLabelUnknown {
		s.metrics.CapabilityDegraded("ml")
	}
	return sig
}

func (s *Service) classifyKey(text, url string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(s.ml.Available())))
	return "classify:" + hex.EncodeToString(h.Sum(nil))
}

// finish records metrics and span attributes and publishes the scan event.
func (s *Service) finish(ctx context.Context, span trace.Span, channel, input, verdict string, score float64) {
	span.SetAttributes(
		attribute.String("scoring.verdict", verdict),
		attribute.Float64("scoring.score", score),
	)
	s.metrics.ObserveClassification(channel, verdict, score)

	if s.bus == nil {
		return
	}

	ev := domain.ScanEvent{
		Type:      channel,
		Input:     truncate(input, maxEventInput),
		Verdict:   verdict,
		Score:     int(math.Round(score)),
		Timestamp: s.now().UnixMilli(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode scan event", "error", err)
		return
	}

	if err := s.bus.Publish(ctx, domain.TopicScanCompleted, payload); err != nil {
		slog.Warn("failed to publish scan event", "topic", domain.TopicScanCompleted, "error", err)
	}
	if ev.Flagged() {
		if err := s.bus.Publish(ctx, domain.TopicScanFlagged, payload); err != nil {
			slog.Warn("failed to publish scan event", "topic", domain.TopicScanFlagged, "error", err)
		}
	}
}

func eventInput(text, url string) string {
	switch {
	case text == "":
		return url
	case url == "":
		return text
	default:
		return text + " " + url
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

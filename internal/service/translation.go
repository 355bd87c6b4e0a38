package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"news_maker/internal/config"
	"news_maker/internal/domain"
)

// TranslationListener stores a translated copy of every new record in the
// configured target language.
type TranslationListener struct {
	store      TranslationStore
	translator Translator
	enabled    bool
	target     string
	excluded   map[string]bool
	strip      *bluemonday.Policy
	logger     *slog.Logger
}

func NewTranslationListener(
	store TranslationStore,
	translator Translator,
	cfg config.TranslationConfig,
	logger *slog.Logger,
) *TranslationListener {
	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, e := range cfg.Excluded {
		excluded[strings.ToLower(strings.TrimSpace(e))] = true
	}

	return &TranslationListener{
		store:      store,
		translator: translator,
		enabled:    cfg.Enabled,
		target:     cfg.TargetLanguage,
		excluded:   excluded,
		strip:      bluemonday.StrictPolicy(),
		logger:     logger.With("component", "translation"),
	}
}

// Handle is subscribed to content creation. Field level provider errors
// keep the original value; only a failed save is returned.
func (l *TranslationListener) Handle(ctx context.Context, evt domain.ContentCreated) error {
	record := evt.Record
	if !l.enabled || record == nil || l.target == "" || l.target == record.Langcode {
		return nil
	}

	exists, err := l.store.Exists(ctx, record.ID, l.target)
	if err != nil {
		return fmt.Errorf("check translation: %w", err)
	}
	if exists {
		return nil
	}

	logger := l.logger.With("record_id", record.ID, "target", l.target)
	fields := l.translateFields(ctx, record.Fields(), record.Langcode, logger)

	err = l.store.Create(ctx, &domain.TranslationRecord{
		RecordID: record.ID,
		Langcode: l.target,
		Fields:   fields,
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("save translation: %w", err)
	}

	logger.Info("translation saved")
	return nil
}

// translateFields returns a copy of fields with every eligible value
// replaced by its translation.
func (l *TranslationListener) translateFields(ctx context.Context, fields []domain.Field, source string, logger *slog.Logger) []domain.Field {
	out := make([]domain.Field, len(fields))
	copy(out, fields)

	for i, f := range fields {
		if !l.eligible(f) {
			continue
		}

		if l.plainText(f.Value) != "" {
			if v, ok := l.translate(ctx, f.Value, source, logger.With("field", f.Name)); ok {
				out[i].Value = v
			}
		}
		if l.plainText(f.Summary) != "" {
			if v, ok := l.translate(ctx, f.Summary, source, logger.With("field", f.Name+".summary")); ok {
				out[i].Summary = v
			}
		}
	}

	return out
}

// eligible applies the name, exclusion and numeric rules. Emptiness is
// checked separately for the value and its summary.
func (l *TranslationListener) eligible(f domain.Field) bool {
	if f.Name == domain.FieldLangcode {
		return false
	}
	if l.excluded[strings.ToLower(f.Type)] || l.excluded[strings.ToLower(f.Value)] {
		return false
	}
	return !isNumeric(l.plainText(f.Value))
}

// isNumeric accepts plain decimal numbers such as "42", "-1.5" or "2e3".
// ParseFloat alone would also accept "NaN", "Inf" and hex floats.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && !strings.ContainsRune("+-.eE", r)
	}) == -1
}

func (l *TranslationListener) plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(l.strip.Sanitize(s))
}

func (l *TranslationListener) translate(ctx context.Context, text, source string, logger *slog.Logger) (string, bool) {
	out, err := l.translator.Translate(ctx, text, source, l.target)
	if err != nil {
		logger.Warn("field translation failed, keeping original", "error", err)
		return "", false
	}
	return out, true
}

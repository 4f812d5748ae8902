// Package seed loads reference data at startup.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/qarelay/core/bootstrap"
	"github.com/m3rciful/qarelay/core/logger"
	"github.com/m3rciful/qarelay/core/telegram/format"
	"github.com/m3rciful/qarelay/qa/domain"
)

type speakerFile struct {
	Speakers []speakerEntry `yaml:"speakers"`
}

type speakerEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	TelegramID string `yaml:"telegram_id"`
}

// SpeakerWriter is the store capability the seeder needs.
type SpeakerWriter interface {
	UpsertSpeaker(ctx context.Context, s domain.Speaker) error
}

// LoadSpeakers parses a speakers YAML file. Ids must be unique and names non-empty.
func LoadSpeakers(path string) ([]domain.Speaker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read speakers file: %w", err)
	}
	return ParseSpeakers(data)
}

// ParseSpeakers decodes speakers from YAML bytes.
func ParseSpeakers(data []byte) ([]domain.Speaker, error) {
	var f speakerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse speakers: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Speakers))
	out := make([]domain.Speaker, 0, len(f.Speakers))
	for i, e := range f.Speakers {
		id := strings.TrimSpace(e.ID)
		name := strings.TrimSpace(e.Name)
		if id == "" || name == "" {
			return nil, fmt.Errorf("speaker #%d: id and name are required", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("speaker #%d: duplicate id %q", i+1, id)
		}
		seen[id] = struct{}{}
		out = append(out, domain.Speaker{ID: id, Name: name, TelegramID: format.StringPtr(e.TelegramID)})
	}
	return out, nil
}

// Speakers returns a bootstrap seeder that upserts the speakers listed in path.
func Speakers(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		w, ok := storage.(SpeakerWriter)
		if !ok {
			return fmt.Errorf("seed speakers: storage %T cannot write speakers", storage)
		}
		start := time.Now()
		speakers, err := LoadSpeakers(path)
		if err != nil {
			logger.SEED.Error("speaker seed failed",
				slog.String("event", "seed.speakers"),
				slog.String("outcome", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		withoutChat := 0
		for _, s := range speakers {
			if err := w.UpsertSpeaker(ctx, s); err != nil {
				return fmt.Errorf("seed speaker %s: %w", s.ID, err)
			}
			if s.TelegramID == nil {
				withoutChat++
			}
		}
		logger.SEED.Info("speakers seeded",
			slog.String("event", "seed.speakers"),
			slog.String("outcome", "ok"),
			slog.Int("count", len(speakers)),
			slog.Int("without_chat", withoutChat),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return nil
	})
}

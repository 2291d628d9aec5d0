// Package voice encodes voice selections as "<provider>:<id>" keys and builds
// selection options from the Revox voice catalog.
package voice

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// DefaultProvider is assumed when a key carries no provider segment.
const DefaultProvider = "cartesia"

const separator = ":"

// ErrCatalogUnavailable is returned when the voice catalog cannot be fetched.
var ErrCatalogUnavailable = errors.New("voice: catalog unavailable")

// Ref identifies a voice at a TTS provider.
type Ref struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

// Encode returns the selection key for a voice.
func Encode(provider, id string) string {
	return provider + separator + id
}

// String implements fmt.Stringer.
func (r Ref) String() string { return Encode(r.Provider, r.ID) }

// Decode parses a selection key. It splits on the first ":" so ids may
// contain colons. The provider segment is kept as given; only an empty one
// falls back to DefaultProvider. ok is false when no usable id is present, in which case
// the caller must leave the voice out of the request.
func Decode(token string) (Ref, bool) {
	provider, id, found := strings.Cut(token, separator)
	if !found {
		provider, id = "", token
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, false
	}
	if provider == "" {
		provider = DefaultProvider
	}
	return Ref{Provider: provider, ID: id}, true
}

// Entry is one voice in the catalog.
type Entry struct {
	ID       string
	Name     string
	Provider string
	Language string
}

// Option is a label/value pair for a selection control.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Options maps catalog entries to selection options lazily.
func Options(entries []Entry) iter.Seq[Option] {
	return func(yield func(Option) bool) {
		for _, e := range entries {
			if !yield(optionFor(e)) {
				return
			}
		}
	}
}

func optionFor(e Entry) Option {
	name := e.Name
	if e.Language != "" {
		name = fmt.Sprintf("%s (%s)", e.Name, e.Language)
	}
	return Option{Name: name, Value: Encode(e.Provider, e.ID)}
}

// EntriesFromResponse reads the "voices" array of a catalog response.
// A missing or non-array field yields an empty list.
func EntriesFromResponse(resp map[string]any) []Entry {
	raw, ok := resp["voices"].([]any)
	if !ok {
		return []Entry{}
	}
	out := make([]Entry, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Entry{
			ID:       stringField(m, "id"),
			Name:     stringField(m, "name"),
			Provider: stringField(m, "provider"),
			Language: stringField(m, "language"),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Fetcher returns the raw catalog response.
type Fetcher interface {
	Voices(ctx context.Context) (map[string]any, error)
}

// LoadOptions fetches the catalog and returns its selection options.
func LoadOptions(ctx context.Context, f Fetcher) ([]Option, error) {
	resp, err := f.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	out := []Option{}
	for o := range Options(EntriesFromResponse(resp)) {
		out = append(out, o)
	}
	return out, nil
}

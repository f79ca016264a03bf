// Package targets holds the fixed, ordered list of monitored endpoints.
package targets

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/statuswatch/internal/domain"
)

var (
	ErrInvalidURL = errors.New("invalid target url")
	ErrDuplicate  = errors.New("duplicate target")
	ErrEmpty      = errors.New("no targets configured")
)

// defaults are the sites monitored when no targets file is given.
var defaults = []string{
	"https://fish.lgbt",
	"https://blog.fish.lgbt",
	"https://status.fish.lgbt",
	"https://minify.fish.lgbt",
	"https://multiplayer.fish.lgbt",
	"https://scanner.fish.lgbt",
	"https://v.fish.lgbt",
	"https://xirelta.com",
	"https://rusty-ip-production.up.railway.app",
}

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	targets []domain.Target
}

func New(urls []string) (*Registry, error) {
	if len(urls) == 0 {
		return nil, ErrEmpty
	}
	seen := make(map[domain.Target]struct{}, len(urls))
	out := make([]domain.Target, 0, len(urls))
	for _, raw := range urls {
		t, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, t)
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return &Registry{targets: out}, nil
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(defaults)
	if err != nil {
		panic(err)
	}
	return r
}

type file struct {
	Targets []string `yaml:"targets"`
}

// Load reads a YAML file of the form `targets: [url, ...]`. An empty path
// yields the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	return New(f.Targets)
}

// All returns the targets in registry order. The slice is a copy.
func (r *Registry) All() []domain.Target {
	out := make([]domain.Target, len(r.targets))
	copy(out, r.targets)
	return out
}

func (r *Registry) Len() int { return len(r.targets) }

func normalize(raw string) (domain.Target, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return domain.Target(strings.TrimRight(raw, "/")), nil
}

// Package seed loads sample articles from YAML and publishes them through
// the news service.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/client"
)

//go:embed articles.yaml
var defaultArticles []byte

type File struct {
	Articles []Article `yaml:"articles"`
}

type Article struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
	ImageURL string `yaml:"image_url"`
}

func (a Article) input() client.ArticleInput {
	return client.ArticleInput{
		Title:    strings.TrimSpace(a.Title),
		Content:  strings.TrimSpace(a.Content),
		Category: strings.TrimSpace(a.Category),
		ImageURL: strings.TrimSpace(a.ImageURL),
	}
}

// Parse decodes a seed file. Every article needs a title and content.
func Parse(data []byte) ([]client.ArticleInput, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	res := make([]client.ArticleInput, 0, len(f.Articles))
	for i, a := range f.Articles {
		in := a.input()
		if in.Title == "" || in.Content == "" {
			return nil, fmt.Errorf("%w: seed article %d needs a title and content", domain.ErrValidation, i)
		}
		res = append(res, in)
	}
	return res, nil
}

// Load reads path, or the bundled sample articles when path is empty
func Load(path string) ([]client.ArticleInput, error) {
	if path == "" {
		return Parse(defaultArticles)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(data)
}

type Publisher interface {
	AddArticle(ctx context.Context, in client.ArticleInput) (client.Article, error)
}

// Publish stores every article and returns the ids of the new ones.
// Titles that already exist are skipped so seeding twice is harmless.
func Publish(ctx context.Context, pub Publisher, list []client.ArticleInput) ([]string, error) {
	ids := make([]string, 0, len(list))
	for _, in := range list {
		a, err := pub.AddArticle(ctx, in)
		if errors.Is(err, domain.ErrConflict) {
			logrus.Infof("seed article %q already exists, skipped", in.Title)
			continue
		}
		if err != nil {
			return ids, fmt.Errorf("publish %q: %w", in.Title, err)
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

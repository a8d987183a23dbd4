package service

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"path"
	"sort"
	"strings"

	"github.com/venus-savings/venus/internal/markdown"
	"github.com/venus-savings/venus/internal/model"
)

var ErrNoInsights = errors.New("no insights available")

const tipTag = "tip"

// InsightService renders the Markdown insights once at startup.
type InsightService struct {
	insights []*model.Insight
	pick     func(n int) int
}

func NewInsightService(fsys fs.FS) (*InsightService, error) {
	parser := markdown.NewParser()

	files, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, err
	}

	insights := make([]*model.Insight, 0, len(files))
	for _, file := range files {
		source, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read insight %s: %w", file, err)
		}

		doc, err := parser.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("failed to render insight %s: %w", file, err)
		}

		slug := slugFromFilename(file)
		title := doc.String("title")
		if title == "" {
			title = slug
		}

		insights = append(insights, &model.Insight{
			Slug:  slug,
			Title: title,
			Order: doc.Int("order"),
			Tags:  doc.Strings("tags"),
			HTML:  string(doc.HTML),
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Order < insights[j].Order
	})

	return &InsightService{insights: insights, pick: rand.IntN}, nil
}

// slugFromFilename turns "02-how-it-works.md" into "how-it-works".
func slugFromFilename(file string) string {
	name := strings.TrimSuffix(path.Base(file), ".md")
	prefix, rest, found := strings.Cut(name, "-")
	if found && prefix != "" && strings.Trim(prefix, "0123456789") == "" {
		return rest
	}
	return name
}

func (s *InsightService) Insights() []*model.Insight {
	return s.insights
}

// Tip returns a random insight tagged "tip".
func (s *InsightService) Tip() (*model.Insight, error) {
	var tips []*model.Insight
	for _, insight := range s.insights {
		if insight.HasTag(tipTag) {
			tips = append(tips, insight)
		}
	}

	if len(tips) == 0 {
		return nil, ErrNoInsights
	}
	return tips[s.pick(len(tips))], nil
}

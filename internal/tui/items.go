package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/thomaskoefod/digestr/pkg/models"
)

type postItem struct {
	rank   int
	ranked models.RankedPost
}

func (i postItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, i.ranked.Post.Title)
}

func (i postItem) Description() string {
	return fmt.Sprintf("score %.2f (sim %.2f, fresh %.2f) | %s",
		i.ranked.Score, i.ranked.Similarity, i.ranked.Freshness,
		i.ranked.Post.PublishedAt.Format("Jan 2, 2006"))
}

func (i postItem) FilterValue() string {
	return i.ranked.Post.Title
}

var _ list.Item = postItem{}

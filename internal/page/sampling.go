package page

import (
	"sort"

	"github.com/samber/lo"

	"discussdraft/internal/models"
)

// SampleReplyCandidates picks up to n posts uniformly at random without
// replacement. The chosen posts are returned in document order.
func (e *Extractor) SampleReplyCandidates(n int) []models.Post {
	return SamplePosts(e.ExtractPosts(), n)
}

func SamplePosts(posts []models.Post, n int) []models.Post {
	if n <= 0 || len(posts) == 0 {
		return []models.Post{}
	}
	if n >= len(posts) {
		return append([]models.Post(nil), posts...)
	}
	picked := lo.Samples(posts, n)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Index < picked[j].Index
	})
	return picked
}

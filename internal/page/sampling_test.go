package page

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discussdraft/internal/models"
)

func makePosts(n int) []models.Post {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, models.Post{ID: fmt.Sprintf("e%d", i), Author: "a", Content: "content long enough", Index: i * 2})
	}
	return posts
}

func TestSamplePosts_SizeAndMembership(t *testing.T) {
	for m := 0; m <= 6; m++ {
		available := makePosts(m)
		byID := make(map[string]models.Post, m)
		for _, p := range available {
			byID[p.ID] = p
		}

		for n := -1; n <= 8; n++ {
			for round := 0; round < 20; round++ {
				got := SamplePosts(available, n)

				want := n
				if want < 0 {
					want = 0
				}
				if want > m {
					want = m
				}
				require.Len(t, got, want, "m=%d n=%d", m, n)

				seen := make(map[string]bool, len(got))
				for i, p := range got {
					assert.Equal(t, byID[p.ID], p, "sampled post must come from the page")
					assert.False(t, seen[p.ID], "duplicate %s", p.ID)
					seen[p.ID] = true
					if i > 0 {
						assert.Less(t, got[i-1].Index, p.Index, "sample keeps document order")
					}
				}
			}
		}
	}
}

func TestSamplePosts_AllWhenRequestExceedsAvailable(t *testing.T) {
	posts := makePosts(3)
	got := SamplePosts(posts, 10)
	assert.Equal(t, posts, got)

	got[0].Author = "changed"
	assert.Equal(t, "a", posts[0].Author)
}

func TestSamplePosts_EventuallyCoversEveryPost(t *testing.T) {
	posts := makePosts(5)
	seen := make(map[string]bool)
	for i := 0; i < 500 && len(seen) < len(posts); i++ {
		for _, p := range SamplePosts(posts, 2) {
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, len(posts))
}

func TestSampleReplyCandidates_Fixture(t *testing.T) {
	e := loadFixture(t)
	got := e.SampleReplyCandidates(2)
	require.Len(t, got, 2)

	all := postIDs(e.ExtractPosts())
	for _, p := range got {
		assert.Contains(t, all, p.ID)
	}
	assert.Len(t, e.SampleReplyCandidates(10), len(all))
}

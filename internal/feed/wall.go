package feed

import (
	"context"
	"errors"
	"log"
	"sync"

	"hrportal/portal-client/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

type API interface {
	ListFeed(ctx context.Context) ([]models.FeedPost, error)
	SetLike(ctx context.Context, postID string, liked bool) (models.LikeResult, error)
}

// Wall caches the community wall of one employee.
type Wall struct {
	api API

	mu    sync.Mutex
	posts []models.FeedPost
	likes map[string]*Optimistic[models.LikeResult]
}

func NewWall(api API) *Wall {
	return &Wall{api: api, likes: make(map[string]*Optimistic[models.LikeResult])}
}

// Refresh reloads the wall. Likes with a pending toggle keep their local value.
func (w *Wall) Refresh(ctx context.Context) ([]models.FeedPost, error) {
	posts, err := w.api.ListFeed(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posts = posts
	for _, post := range posts {
		current := models.LikeResult{Liked: post.Liked, LikeCount: post.LikeCount}
		if like, ok := w.likes[post.ID]; ok {
			like.Set(current)
			continue
		}
		w.likes[post.ID] = NewOptimistic(current)
	}
	return w.postsLocked(), nil
}

func (w *Wall) Posts() []models.FeedPost {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.postsLocked()
}

// ToggleLike flips the like immediately, then confirms with the server result or
// rolls back when the call fails.
func (w *Wall) ToggleLike(ctx context.Context, postID string) (models.LikeResult, error) {
	w.mu.Lock()
	like, ok := w.likes[postID]
	w.mu.Unlock()
	if !ok {
		return models.LikeResult{}, ErrPostNotFound
	}

	current := like.Value()
	tentative := models.LikeResult{Liked: !current.Liked, LikeCount: current.LikeCount}
	if tentative.Liked {
		tentative.LikeCount++
	} else if tentative.LikeCount > 0 {
		tentative.LikeCount--
	}
	if err := like.Apply(tentative); err != nil {
		return current, err
	}

	result, err := w.api.SetLike(ctx, postID, tentative.Liked)
	if err != nil {
		like.Rollback()
		log.Printf("feed like rollback post=%s: %v", postID, err)
		return like.Value(), err
	}
	like.Confirm(result)
	return result, nil
}

func (w *Wall) postsLocked() []models.FeedPost {
	out := make([]models.FeedPost, len(w.posts))
	for i, post := range w.posts {
		if like, ok := w.likes[post.ID]; ok {
			value := like.Value()
			post.Liked = value.Liked
			post.LikeCount = value.LikeCount
		}
		out[i] = post
	}
	return out
}

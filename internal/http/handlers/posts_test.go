package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/followerscart/backend/internal/cache"
	"github.com/followerscart/backend/internal/domain/post"
	"github.com/followerscart/backend/internal/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

type fakePostsRepo struct {
	createFn func(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error)
	getFn    func(ctx context.Context, id string) (post.Post, error)
	listFn   func(ctx context.Context) ([]post.Post, error)
	updateFn func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakePostsRepo) Create(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req, author)
	}
	return post.Post{}, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return post.Post{}, nil
}

func (f *fakePostsRepo) List(ctx context.Context) ([]post.Post, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return post.Post{}, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func TestCreatePostHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakePostsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"title": "Boost your reach",
				"content": "A long article about growing an audience."
			}`,
			repoSetUp: func(f *fakePostsRepo) {
				f.createFn = func(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error) {
					return post.Post{
						ID:        uuid.NewString(),
						Title:     req.Title,
						Content:   req.Content,
						Author:    author,
						Snippet:   post.DeriveSnippet(req.Snippet, req.Content),
						CreatedAt: now,
						UpdatedAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "validation_error",
			body: `{"title": ""}`,
			repoSetUp: func(f *fakePostsRepo) {
				// invalid request, the repo should not be called
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "title_taken",
			body: `{
				"title": "Boost your reach",
				"content": "Some content."
			}`,
			repoSetUp: func(f *fakePostsRepo) {
				f.createFn = func(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error) {
					return post.Post{}, post.ErrTitleTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "repo_error",
			body: `{
				"title": "Boost your reach",
				"content": "Some content."
			}`,
			repoSetUp: func(f *fakePostsRepo) {
				f.createFn = func(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error) {
					return post.Post{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fakeRepo := &fakePostsRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(fakeRepo)
			}

			h := handlers.NewPostsHandler(fakeRepo, nil)

			r := setupRouter(http.MethodPost, "/admin/posts", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/admin/posts", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestGetPostByIDNotFound(t *testing.T) {
	fakeRepo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return post.Post{}, post.ErrNotFound
		},
	}

	h := handlers.NewPostsHandler(fakeRepo, nil)
	r := setupRouter(http.MethodGet, "/posts/:id", h.GetByID)

	req := httptest.NewRequest(http.MethodGet, "/posts/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

// The list endpoint serves from cache until a write invalidates it.
func TestListPostsUsesCache(t *testing.T) {
	calls := 0

	fakeRepo := &fakePostsRepo{
		listFn: func(ctx context.Context) ([]post.Post, error) {
			calls++
			return []post.Post{{ID: "p-1", Title: "Cached"}}, nil
		},
	}

	h := handlers.NewPostsHandler(fakeRepo, cache.New(time.Minute))
	r := setupRouter(http.MethodGet, "/posts", h.List)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", w.Code)
		}

		var resp struct {
			Posts []post.Post `json:"posts"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Posts) != 1 || resp.Posts[0].Title != "Cached" {
			t.Fatalf("unexpected posts: %+v", resp.Posts)
		}
	}

	if calls != 1 {
		t.Fatalf("repo called %d times, want 1", calls)
	}
}

func TestUpdatePostInvalidatesCache(t *testing.T) {
	listCalls := 0

	fakeRepo := &fakePostsRepo{
		listFn: func(ctx context.Context) ([]post.Post, error) {
			listCalls++
			return []post.Post{}, nil
		},
		updateFn: func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
			return post.Post{ID: id, Title: req.Title}, nil
		},
	}

	c := cache.New(time.Minute)
	h := handlers.NewPostsHandler(fakeRepo, c)

	r := gin.New()
	r.GET("/posts", h.List)
	r.PUT("/admin/posts/:id", h.Update)

	get := func() {
		req := httptest.NewRequest(http.MethodGet, "/posts", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}

	get()
	get() // served from cache

	body := `{"title": "Updated title", "content": "Updated content"}`
	req := httptest.NewRequest(http.MethodPut, "/admin/posts/p-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("update got status %d, body=%s", w.Code, w.Body.String())
	}

	get() // cache was invalidated, repo hit again

	if listCalls != 2 {
		t.Fatalf("repo list called %d times, want 2", listCalls)
	}
}
